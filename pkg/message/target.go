package message

// Target is the addressing mode of a message: a device token, a topic name, or a condition
// expression. The three are mutually exclusive.
type Target struct {
	kind  targetKind
	value string
}

type targetKind int

const (
	targetToken targetKind = iota + 1
	targetTopic
	targetCondition
)

// TokenTarget addresses a single device registration token.
func TokenTarget(token string) Target { return Target{kind: targetToken, value: token} }

// TopicTarget addresses a topic, e.g. "weather". Do not include the "/topics/" prefix.
func TopicTarget(topic string) Target { return Target{kind: targetTopic, value: topic} }

// ConditionTarget addresses a condition, e.g. "'foo' in topics && 'bar' in topics".
func ConditionTarget(cond string) Target { return Target{kind: targetCondition, value: cond} }

func (t Target) apply(m *Message) {
	switch t.kind {
	case targetToken:
		m.Token = t.value
	case targetTopic:
		m.Topic = t.value
	case targetCondition:
		m.Condition = t.value
	}
}

func (t Target) String() string {
	switch t.kind {
	case targetToken:
		return "token:" + t.value
	case targetTopic:
		return "topic:" + t.value
	case targetCondition:
		return "condition:" + t.value
	default:
		return "none"
	}
}

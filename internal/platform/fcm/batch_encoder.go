package fcm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

const (
	batchBoundary = "subrequest_boundary"

	// BatchContentType is the Content-Type of an encoded batch body.
	BatchContentType = `multipart/mixed; boundary="` + batchBoundary + `"`
)

// EncodeBatch serialises msgs into one multipart/mixed body, one embedded
// "POST /v1/projects/{projectID}/messages:send" request per message, in input order.
//
// Sub-requests always carry validate_only=false. The output depends only on projectID and
// the ordered messages.
func EncodeBatch(projectID string, msgs []*message.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(batchBoundary); err != nil {
		return nil, err
	}

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Type", "application/http")
	partHeader.Set("Content-Transfer-Encoding", "binary")

	for i, msg := range msgs {
		payload, err := json.Marshal(dispatch.SendRequest{ValidateOnly: false, Message: msg})
		if err != nil {
			return nil, fmt.Errorf("encode message %d: %w", i, err)
		}

		part, err := w.CreatePart(partHeader)
		if err != nil {
			return nil, fmt.Errorf("create part %d: %w", i, err)
		}
		fmt.Fprintf(part, "POST /v1/projects/%s/messages:send\r\n", projectID)
		fmt.Fprint(part, "Content-Type: application/json\r\n")
		fmt.Fprint(part, "accept: application/json\r\n\r\n")
		if _, err := part.Write(payload); err != nil {
			return nil, fmt.Errorf("write part %d: %w", i, err)
		}
		fmt.Fprint(part, "\r\n")
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart: %w", err)
	}
	return buf.Bytes(), nil
}

package fcm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// BlockDecoder splits a batch response into one raw body per sub-request, in request order.
type BlockDecoder interface {
	Decode(contentType string, body []byte) ([]dispatch.RawOutcome, error)
}

// LineDecoder recovers JSON payloads by scanning lines for top-level braces.
//
// Protocol assumption: FCM pretty-prints every part payload so that the opening "{" and the
// closing "}" of the top-level object each sit alone on a line. Nested objects are indented and
// therefore never match. MIME headers, boundaries and blank lines outside a block are ignored,
// which keeps the scanner independent of the exact framing.
type LineDecoder struct{}

func (LineDecoder) Decode(_ string, body []byte) ([]dispatch.RawOutcome, error) {
	var (
		out     []dispatch.RawOutcome
		current strings.Builder
		inBlock bool
		lineNo  int
	)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == "{":
			if inBlock {
				return nil, fmt.Errorf("line %d: block opened inside another block", lineNo)
			}
			inBlock = true
			current.Reset()
			current.WriteString("{\n")
		case line == "}" && inBlock:
			current.WriteString("}")
			out = append(out, dispatch.RawOutcome{Index: len(out), Body: []byte(current.String())})
			inBlock = false
		case inBlock && line != "":
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inBlock {
		return nil, errors.New("response ended inside an unterminated block")
	}
	return out, nil
}

// MIMEDecoder parses the response as real multipart/mixed, each part holding an embedded
// HTTP response. It is stricter than LineDecoder and needs the response Content-Type.
type MIMEDecoder struct{}

func (MIMEDecoder) Decode(contentType string, body []byte) ([]dispatch.RawOutcome, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, fmt.Errorf("not a multipart response: %q", contentType)
	}

	var out []dispatch.RawOutcome
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", len(out), err)
		}

		resp, err := http.ReadResponse(bufio.NewReader(part), nil)
		if err != nil {
			return nil, fmt.Errorf("part %d: embedded response: %w", len(out), err)
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("part %d: read body: %w", len(out), err)
		}

		out = append(out, dispatch.RawOutcome{Index: len(out), Body: payload})
	}
	return out, nil
}

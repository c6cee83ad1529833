package extract

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/finwatch/expense-importer/internal/core"
)

// ReadRFC822 parses a raw RFC822 email into a RawMessage so the same
// extraction path serves both API-fetched messages and local files. Part
// payloads are re-encoded base64url to match the RawMessage transport
// contract.
func ReadRFC822(r io.Reader) (*core.RawMessage, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("parse email: %w", err)
	}

	raw := &core.RawMessage{}
	for name, values := range msg.Header {
		for _, v := range values {
			raw.Headers = append(raw.Headers, core.Header{Name: name, Value: v})
		}
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, err := decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return nil, err
		}
		mt := mediaType
		if mt == "" {
			mt = "text/plain"
		}
		raw.Payload = core.MessagePart{MimeType: mt, Data: encodePayload(body)}
		return raw, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("multipart message has no boundary")
	}

	raw.Payload = core.MessagePart{MimeType: mediaType}
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever parts were already read.
			break
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if !strings.HasPrefix(partType, "text/") {
			continue
		}
		body, err := decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}
		raw.Payload.Parts = append(raw.Payload.Parts, core.MessagePart{
			MimeType: partType,
			Data:     encodePayload(body),
		})
	}
	if len(raw.Payload.Parts) == 0 {
		return nil, fmt.Errorf("multipart message has no text parts")
	}
	return raw, nil
}

func decodeTransfer(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func encodePayload(body []byte) string {
	return base64.RawURLEncoding.EncodeToString(body)
}

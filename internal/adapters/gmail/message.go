package gmail

import "github.com/finwatch/expense-importer/internal/core"

// Wire shapes for the mail API responses.

type listResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

type wireHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireBody struct {
	Data string `json:"data"`
}

type wirePart struct {
	MimeType string       `json:"mimeType"`
	Headers  []wireHeader `json:"headers"`
	Body     wireBody     `json:"body"`
	Parts    []wirePart   `json:"parts"`
}

type wireMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Payload  wirePart `json:"payload"`
}

func (m *wireMessage) toRawMessage() *core.RawMessage {
	raw := &core.RawMessage{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Payload:  m.Payload.toPart(),
	}
	for _, h := range m.Payload.Headers {
		raw.Headers = append(raw.Headers, core.Header{Name: h.Name, Value: h.Value})
	}
	return raw
}

func (p *wirePart) toPart() core.MessagePart {
	part := core.MessagePart{
		MimeType: p.MimeType,
		Data:     p.Body.Data,
	}
	for i := range p.Parts {
		part.Parts = append(part.Parts, p.Parts[i].toPart())
	}
	return part
}

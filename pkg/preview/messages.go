package preview

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// Message types exchanged with the preview surface.
const (
	TypeRender        = "render"
	TypeOpenInBrowser = "openInBrowser"
	TypeRendered      = "rendered"
	TypeError         = "error"
	TypeVars          = "vars"
)

// ErrUnknownMessage is returned for inbound messages of an unknown type.
var ErrUnknownMessage = errors.New("preview: unknown message type")

// Inbound is a message from the preview surface.
type Inbound struct {
	Type string          `json:"type"`
	Vars json.RawMessage `json:"vars,omitempty"`
	HTML string          `json:"html,omitempty"`
}

// Outbound is a message to the preview surface.
type Outbound struct {
	Type    string      `json:"type"`
	HTML    string      `json:"html,omitempty"`
	Message string      `json:"message,omitempty"`
	Vars    sample.Data `json:"vars,omitempty"`
}

// DecodeInbound parses a raw message.
func DecodeInbound(payload []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Inbound{}, fmt.Errorf("preview: decode message: %w", err)
	}
	return msg, nil
}

// Data decodes the vars of a render message. Missing or null vars are an
// empty object.
func (m Inbound) Data() (sample.Data, error) {
	return sample.Decode(m.Vars)
}

// Rendered builds a success message.
func Rendered(html string) Outbound {
	return Outbound{Type: TypeRendered, HTML: html}
}

// Failed builds a failure message.
func Failed(message string) Outbound {
	return Outbound{Type: TypeError, Message: message}
}

// Vars builds the message that seeds the data editor.
func Vars(data sample.Data) Outbound {
	if data == nil {
		data = sample.New()
	}
	return Outbound{Type: TypeVars, Vars: data}
}

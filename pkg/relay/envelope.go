package relay

import (
	"encoding/json"

	"github.com/petrijr/echo/pkg/api"
)

// Frame types.
const (
	TypeAction  = "action"
	TypeReceipt = "receipt"
	TypeError   = "error"
)

// Envelope is the wire form of an action. Handlers never travel: the
// receiving side binds the action name to a local registry through a
// Decoder. A nested envelope may be carried in Metadata["NextAction"].
type Envelope struct {
	Type     string                     `json:"type,omitempty"`
	ID       string                     `json:"id,omitempty"`
	Action   string                     `json:"action"`
	Content  json.RawMessage            `json:"content,omitempty"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
	License  *bool                      `json:"license,omitempty"`
}

// Receipt reports the outcome of one delivery attempt to connected peers.
type Receipt struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorFrame is written back to a peer whose frame could not be accepted.
type ErrorFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// NewReceipt describes the outcome err of delivering action.
func NewReceipt(action api.Executable, err error) Receipt {
	r := Receipt{
		Type:   TypeReceipt,
		ID:     action.ID(),
		Action: action.Name(),
		OK:     err == nil,
	}
	if err != nil {
		r.Kind = api.KindOf(err).String()
		r.Error = err.Error()
	}
	return r
}

// Encode builds a JSON envelope from content and plain metadata values. A
// metadata value that is itself an *Envelope is nested as-is.
func Encode(id, action string, content any, meta map[string]any) ([]byte, error) {
	env, err := NewEnvelope(id, action, content, meta)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// NewEnvelope is Encode without the final marshal, for nesting.
func NewEnvelope(id, action string, content any, meta map[string]any) (*Envelope, error) {
	env := &Envelope{Type: TypeAction, ID: id, Action: action}
	if content != nil {
		raw, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		env.Content = raw
	}
	if len(meta) > 0 {
		env.Metadata = make(map[string]json.RawMessage, len(meta))
		for k, v := range meta {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			env.Metadata[k] = raw
		}
	}
	return env, nil
}

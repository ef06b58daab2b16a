package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/petrijr/echo/pkg/api"
)

var (
	ErrInvalidFrame    = errors.New("invalid frame")
	ErrUnsupportedType = errors.New("unsupported frame type")
	ErrUnknownAction   = errors.New("no binding for action")
	ErrNestingTooDeep  = errors.New("envelope nesting too deep")
)

// MaxNesting bounds how many NextAction envelopes may be nested.
const MaxNesting = api.DefaultMaxChainDepth

type binder func(env *Envelope) (bindable, error)

// bindable is the builder surface shared by every Action[T].
type bindable interface {
	api.Executable
	setID(id string)
	setLicense(v bool)
	setMetadata(key string, value any)
}

type bound[T any] struct{ *api.Action[T] }

func (b bound[T]) setID(id string)                   { b.WithID(id) }
func (b bound[T]) setLicense(v bool)                 { b.WithLicense(api.NewSignal(v)) }
func (b bound[T]) setMetadata(key string, value any) { b.WithMetadata(key, value) }

// Decoder turns envelopes into executable actions. Each action name is bound
// to a content type and the registry its handler lives in.
type Decoder struct {
	mu      sync.RWMutex
	binders map[string]binder
}

func NewDecoder() *Decoder {
	return &Decoder{binders: make(map[string]binder)}
}

// Bind registers name so that envelopes for it decode their content as T
// and resolve handlers from reg.
func Bind[T any](d *Decoder, name string, reg *api.Registry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.binders[name] = func(env *Envelope) (bindable, error) {
		var content T
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				return nil, fmt.Errorf("decode content for %s: %w", name, err)
			}
		}
		return bound[T]{api.New(name, content, reg)}, nil
	}
}

// Bound reports whether name has a binding.
func (d *Decoder) Bound(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.binders[name]
	return ok
}

// Decode parses a single action frame.
func (d *Decoder) Decode(data []byte) (api.Executable, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidFrame
	}
	if typ := gjson.GetBytes(data, "type").String(); typ != TypeAction {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}
	return d.decode(data, 0)
}

func (d *Decoder) decode(data []byte, depth int) (api.Executable, error) {
	if depth >= MaxNesting {
		return nil, ErrNestingTooDeep
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrInvalidFrame)
	}

	d.mu.RLock()
	bind, ok := d.binders[env.Action]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, env.Action)
	}

	action, err := bind(&env)
	if err != nil {
		return nil, err
	}
	if env.ID != "" {
		action.setID(env.ID)
	}
	if env.License != nil {
		action.setLicense(*env.License)
	}
	for key, raw := range env.Metadata {
		value, err := d.metadataValue(key, raw, depth)
		if err != nil {
			return nil, err
		}
		action.setMetadata(key, value)
	}
	return action, nil
}

func (d *Decoder) metadataValue(key string, raw json.RawMessage, depth int) (any, error) {
	switch key {
	case api.MetaNextAction:
		next, err := d.decode(raw, depth+1)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return next, nil
	case api.MetaHooks:
		var hooks []string
		if err := json.Unmarshal(raw, &hooks); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return hooks, nil
	default:
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("%w: metadata %s", ErrInvalidFrame, key)
		}
		return gjson.ParseBytes(raw).Value(), nil
	}
}

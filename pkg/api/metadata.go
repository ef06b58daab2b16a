package api

import (
	"fmt"
	"maps"
	"time"

	"github.com/petrijr/echo/pkg/config"
)

// Well-known metadata keys read by Action.Execute.
const (
	MetaAction     = "Action"
	MetaDelay      = "Delay"
	MetaHooks      = "Hooks"
	MetaNextAction = "NextAction"
	MetaArguments  = "Arguments"
	MetaResultKey  = "ResultKey"
)

// Metadata carries per-action control data. Values are dynamically typed;
// the accessors below convert the well-known keys.
type Metadata map[string]any

// Get returns the raw value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Clone returns a shallow copy of m. A nil map clones to an empty one.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// String returns the value under key if it is a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Duration returns the value under key as a duration. Numbers are seconds,
// strings are parsed as Go durations.
func (m Metadata) Duration(key string) (time.Duration, bool, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return 0, false, nil
	}
	d, err := config.ToDuration(v)
	if err != nil {
		return 0, true, err
	}
	return d, true, nil
}

// Strings returns the value under key as an ordered list of strings. It
// accepts []string, []any of strings and a single string.
func (m Metadata) Strings(key string) ([]string, bool, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil, false, nil
	}
	switch t := v.(type) {
	case []string:
		return t, true, nil
	case string:
		return []string{t}, true, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, true, &typeError{key: key, got: item}
			}
			out = append(out, s)
		}
		return out, true, nil
	}
	return nil, true, &typeError{key: key, got: v}
}

type typeError struct {
	key string
	got any
}

func (e *typeError) Error() string {
	return fmt.Sprintf("metadata %s: unexpected value type %T", e.key, e.got)
}

// Package config provides the read-only configuration handle consumed by the
// action engine.
//
// The engine never mutates configuration. Hosts build a Values handle either
// by hand (NewValues) or from the environment (FromEnv) and pass it to the
// execution context before starting any processors.
package config

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Keys recognized by the engine. All of them are optional.
const (
	KeyMaxRetries     = "max_retries"
	KeyRetryBaseDelay = "retry_base_delay"
	KeyRetryMult      = "retry_multiplier"
	KeyRetryMaxDelay  = "retry_max_delay"
	KeyRetryJitter    = "retry_jitter"
	KeyMaxChainDepth  = "max_chain_depth"
	KeyIdleBackoff    = "idle_backoff"
	KeyMaxIdleBackoff = "max_idle_backoff"
)

// Reader is a read-only key/value configuration handle.
type Reader interface {
	Get(key string) (any, bool)
}

// Values is an immutable Reader backed by a map.
type Values struct {
	m map[string]any
}

// Ensure Values implements Reader.
var _ Reader = Values{}

// NewValues copies m into a new Values handle. Later changes to m are not
// visible through the handle.
func NewValues(m map[string]any) Values {
	return Values{m: maps.Clone(m)}
}

// Empty returns a handle with no keys.
func Empty() Values {
	return Values{}
}

func (v Values) Get(key string) (any, bool) {
	if v.m == nil {
		return nil, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Len returns the number of keys in the handle.
func (v Values) Len() int {
	return len(v.m)
}

// Int reads key as an integer, falling back to def when the key is absent or
// cannot be converted.
func Int(r Reader, key string, def int) int {
	raw, ok := lookup(r, key)
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return n
	}
	return def
}

// Float reads key as a float64.
func Float(r Reader, key string, def float64) float64 {
	raw, ok := lookup(r, key)
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	}
	return def
}

// Duration reads key as a time.Duration. Strings are parsed with
// time.ParseDuration; bare numbers are interpreted as seconds.
func Duration(r Reader, key string, def time.Duration) time.Duration {
	raw, ok := lookup(r, key)
	if !ok {
		return def
	}
	d, err := ToDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// String reads key as a string.
func String(r Reader, key string, def string) string {
	raw, ok := lookup(r, key)
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return def
}

// Bool reads key as a bool.
func Bool(r Reader, key string, def bool) bool {
	raw, ok := lookup(r, key)
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// ToDuration converts a dynamically typed value into a duration. Numbers are
// seconds, strings use Go duration syntax or plain seconds.
func ToDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int32:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float32:
		return time.Duration(float64(v) * float64(time.Second)), nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(f * float64(time.Second)), nil
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("unsupported duration type %T", raw)
}

func lookup(r Reader, key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Get(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrInvalidMaxRetries  = errors.New("max retries cannot be negative")
	ErrInvalidChainDepth  = errors.New("max chain depth must be positive")
	ErrInvalidMultiplier  = errors.New("retry multiplier must be >= 1")
	ErrInvalidIdleBackoff = errors.New("max idle backoff must be >= idle backoff")
)

// Settings holds the engine settings that can be supplied through the
// environment.
type Settings struct {
	MaxRetries     int           `env:"ECHO_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"ECHO_RETRY_BASE_DELAY" envDefault:"2s"`
	RetryMult      float64       `env:"ECHO_RETRY_MULTIPLIER" envDefault:"2"`
	RetryMaxDelay  time.Duration `env:"ECHO_RETRY_MAX_DELAY" envDefault:"0s"`
	RetryJitter    time.Duration `env:"ECHO_RETRY_JITTER" envDefault:"0s"`
	MaxChainDepth  int           `env:"ECHO_MAX_CHAIN_DEPTH" envDefault:"16"`
	IdleBackoff    time.Duration `env:"ECHO_IDLE_BACKOFF" envDefault:"10ms"`
	MaxIdleBackoff time.Duration `env:"ECHO_MAX_IDLE_BACKOFF" envDefault:"250ms"`
}

// ParseSettings loads Settings from environment variables.
func ParseSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// FromEnv parses and validates Settings and returns them as a Reader.
func FromEnv() (Values, error) {
	s, err := ParseSettings()
	if err != nil {
		return Values{}, err
	}
	if err := s.Validate(); err != nil {
		return Values{}, err
	}
	return s.Values(), nil
}

// Validate checks that all settings are usable.
func (s Settings) Validate() error {
	if s.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRetries, s.MaxRetries)
	}
	if s.MaxChainDepth <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChainDepth, s.MaxChainDepth)
	}
	if s.RetryMult < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidMultiplier, s.RetryMult)
	}
	if s.MaxIdleBackoff < s.IdleBackoff {
		return ErrInvalidIdleBackoff
	}
	return nil
}

// Values converts the settings into a read-only handle keyed by the engine's
// configuration keys.
func (s Settings) Values() Values {
	return NewValues(map[string]any{
		KeyMaxRetries:     s.MaxRetries,
		KeyRetryBaseDelay: s.RetryBaseDelay,
		KeyRetryMult:      s.RetryMult,
		KeyRetryMaxDelay:  s.RetryMaxDelay,
		KeyRetryJitter:    s.RetryJitter,
		KeyMaxChainDepth:  s.MaxChainDepth,
		KeyIdleBackoff:    s.IdleBackoff,
		KeyMaxIdleBackoff: s.MaxIdleBackoff,
	})
}

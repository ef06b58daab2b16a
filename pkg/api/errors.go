package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an action did not complete.
type ErrorKind int

const (
	// KindExecution covers structural failures and handler errors.
	KindExecution ErrorKind = iota
	// KindLicense means the action's license was revoked at execution time.
	KindLicense
	// KindRouting means a named queue or route could not be resolved.
	KindRouting
	// KindCancellation means the execution was abandoned during shutdown.
	KindCancellation
)

func (k ErrorKind) String() string {
	switch k {
	case KindLicense:
		return "license"
	case KindExecution:
		return "execution"
	case KindRouting:
		return "routing"
	case KindCancellation:
		return "cancellation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matching any ActionError of the corresponding kind via errors.Is.
var (
	ErrLicense      = &ActionError{Kind: KindLicense}
	ErrExecution    = &ActionError{Kind: KindExecution}
	ErrRouting      = &ActionError{Kind: KindRouting}
	ErrCancellation = &ActionError{Kind: KindCancellation}
)

var (
	ErrHandlerExists   = errors.New("handler already registered")
	ErrHandlerNotFound = errors.New("handler not found")
	ErrQueueNotFound   = errors.New("queue not found")
	ErrChainTooDeep    = errors.New("action chain too deep")
	ErrChainCycle      = errors.New("action chain cycle")
)

// ActionError is returned by every interpreter step of Action.Execute and by
// the processor when it gives up on an action.
type ActionError struct {
	Kind    ErrorKind
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Action == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s error: action %s: %s", e.Kind, e.Action, msg)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels. Two ActionErrors are considered equal when
// the target carries only a kind.
func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	if !ok {
		return false
	}
	if t.Action == "" && t.Message == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// NewError builds an ActionError of the given kind.
func NewError(kind ErrorKind, action, msg string, cause error) *ActionError {
	return &ActionError{Kind: kind, Action: action, Message: msg, Err: cause}
}

func licenseError(action string) error {
	return NewError(KindLicense, action, "license revoked", nil)
}

func executionError(action, msg string, cause error) error {
	return NewError(KindExecution, action, msg, cause)
}

func routingError(action, msg string, cause error) error {
	return NewError(KindRouting, action, msg, cause)
}

func cancellationError(action string, cause error) error {
	return NewError(KindCancellation, action, "execution abandoned", cause)
}

// Cancelled wraps cause as a Cancellation error for action.
func Cancelled(action string, cause error) error {
	return cancellationError(action, cause)
}

// KindOf reports the kind of the first ActionError in err's chain. Errors that
// carry no ActionError are treated as Execution failures.
func KindOf(err error) ErrorKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindExecution
}

// Retryable reports whether the processor may attempt err's action again.
// License and Cancellation failures are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindLicense, KindCancellation:
		return false
	}
	return true
}

package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/log"
)

type errStub string

func (e errStub) Error() string { return string(e) }

func TestAction(t *testing.T) {
	assertAttrEqual(t, log.Action("Read"), "action", "Read")
}

func TestActionID(t *testing.T) {
	assertAttrEqual(t, log.ActionID("act-1"), "action_id", "act-1")
}

func TestQueue(t *testing.T) {
	assertAttrEqual(t, log.Queue("main"), "queue", "main")
}

func TestAttempt(t *testing.T) {
	attr := log.Attempt(3)
	assert.Equal(t, "attempt", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())
}

func TestKind(t *testing.T) {
	assertAttrEqual(t, log.Kind(api.KindRouting), "kind", "routing")
}

func TestError(t *testing.T) {
	assertAttrEqual(t, log.Error(nil), "error", "")
	assertAttrEqual(t, log.Error(errStub("boom")), "error", "boom")
}

func TestErrorString(t *testing.T) {
	assertAttrEqual(t, log.ErrorString("badness"), "error", "badness")
}

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}

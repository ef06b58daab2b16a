package relay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/relay"
)

type greeting struct {
	Name string `json:"name"`
}

func (g greeting) Arguments() []any { return []any{g.Name} }

func testRegistry(t *testing.T) *api.Registry {
	t.Helper()
	reg, err := api.NewPlan().
		Func("Greet", func(ctx context.Context, args []any) (any, error) {
			return "hello " + args[0].(string), nil
		}).
		Func("Upper", func(ctx context.Context, args []any) (any, error) {
			return strings.ToUpper(args[0].(string)), nil
		}).
		Build()
	require.NoError(t, err)
	return reg
}

func testDecoder(t *testing.T) *relay.Decoder {
	t.Helper()
	reg := testRegistry(t)
	d := relay.NewDecoder()
	relay.Bind[greeting](d, "Greet", reg)
	relay.Bind[string](d, "Upper", reg)
	return d
}

func TestDecodeTypedContent(t *testing.T) {
	d := testDecoder(t)
	action, err := d.Decode([]byte(`{"type":"action","id":"a-1","action":"Greet","content":{"name":"world"}}`))
	require.NoError(t, err)

	assert.Equal(t, "a-1", action.ID())
	assert.Equal(t, "Greet", action.Name())
	assert.True(t, action.License().Get())

	typed, ok := action.(interface{ Content() greeting })
	require.True(t, ok)
	assert.Equal(t, greeting{Name: "world"}, typed.Content())

	ec := api.NewExecutionContext()
	require.NoError(t, action.Execute(context.Background(), ec))
	v, _, _ := ec.Cache().Get(context.Background(), "Greet")
	assert.Equal(t, "hello world", v)
}

func TestDecodeMetadata(t *testing.T) {
	d := testDecoder(t)
	action, err := d.Decode([]byte(`{
		"type": "action",
		"action": "Upper",
		"content": "quiet",
		"license": false,
		"metadata": {"Hooks": ["audit"], "Delay": "5ms", "ResultKey": "shout", "Priority": 3}
	}`))
	require.NoError(t, err)

	assert.NotEmpty(t, action.ID())
	assert.False(t, action.License().Get())

	meta := action.Metadata()
	hooks, ok, err := meta.Strings(api.MetaHooks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"audit"}, hooks)

	delay, ok, err := meta.Duration(api.MetaDelay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Millisecond, delay)

	key, _ := meta.String(api.MetaResultKey)
	assert.Equal(t, "shout", key)
	assert.Equal(t, float64(3), meta["Priority"])

	err = action.Execute(context.Background(), api.NewExecutionContext())
	assert.ErrorIs(t, err, api.ErrLicense)
}

func TestDecodeNestedNextAction(t *testing.T) {
	d := testDecoder(t)
	action, err := d.Decode([]byte(`{
		"type": "action",
		"action": "Greet",
		"content": {"name": "world"},
		"metadata": {"NextAction": {"action": "Upper", "content": "done"}}
	}`))
	require.NoError(t, err)

	next, ok := action.Metadata()[api.MetaNextAction].(api.Executable)
	require.True(t, ok)
	assert.Equal(t, "Upper", next.Name())

	ec := api.NewExecutionContext()
	require.NoError(t, action.Execute(context.Background(), ec))
	v, _, _ := ec.Cache().Get(context.Background(), "Upper")
	assert.Equal(t, "DONE", v)
}

func TestDecodeNestedSharedID(t *testing.T) {
	d := testDecoder(t)
	action, err := d.Decode([]byte(`{
		"type": "action",
		"id": "job-7",
		"action": "Upper",
		"content": "first",
		"metadata": {"NextAction": {"id": "job-7", "action": "Upper", "content": "second"}}
	}`))
	require.NoError(t, err)

	next := action.Metadata()[api.MetaNextAction].(api.Executable)
	assert.Equal(t, action.ID(), next.ID())

	ec := api.NewExecutionContext()
	require.NoError(t, action.Execute(context.Background(), ec))
	v, _, _ := ec.Cache().Get(context.Background(), "Upper")
	assert.Equal(t, "SECOND", v)
}

func TestDecodeRejects(t *testing.T) {
	d := testDecoder(t)

	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"invalid json", `{"type":`, relay.ErrInvalidFrame},
		{"receipt frame", `{"type":"receipt","action":"Greet"}`, relay.ErrUnsupportedType},
		{"missing type", `{"action":"Greet"}`, relay.ErrUnsupportedType},
		{"missing action", `{"type":"action"}`, relay.ErrInvalidFrame},
		{"unknown action", `{"type":"action","action":"Nope"}`, relay.ErrUnknownAction},
		{"unknown nested", `{"type":"action","action":"Upper","metadata":{"NextAction":{"action":"Nope"}}}`, relay.ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeBadContent(t *testing.T) {
	d := testDecoder(t)
	_, err := d.Decode([]byte(`{"type":"action","action":"Upper","content":{"not":"a string"}}`))
	assert.Error(t, err)

	_, err = d.Decode([]byte(`{"type":"action","action":"Upper","metadata":{"Hooks":"audit"}}`))
	assert.Error(t, err)
}

func TestDecodeNestingBound(t *testing.T) {
	d := testDecoder(t)

	frame := `{"action":"Upper","content":"x"}`
	for range relay.MaxNesting {
		frame = `{"action":"Upper","content":"x","metadata":{"NextAction":` + frame + `}}`
	}
	frame = `{"type":"action",` + strings.TrimPrefix(frame, "{")

	_, err := d.Decode([]byte(frame))
	assert.ErrorIs(t, err, relay.ErrNestingTooDeep)
}

func TestEncodeRoundTrip(t *testing.T) {
	d := testDecoder(t)

	next, err := relay.NewEnvelope("n-1", "Upper", "done", nil)
	require.NoError(t, err)
	data, err := relay.Encode("a-1", "Greet", greeting{Name: "world"}, map[string]any{
		api.MetaHooks:      []string{"audit"},
		api.MetaNextAction: next,
	})
	require.NoError(t, err)

	action, err := d.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "a-1", action.ID())

	nested := action.Metadata()[api.MetaNextAction].(api.Executable)
	assert.Equal(t, "n-1", nested.ID())
	assert.True(t, d.Bound("Greet"))
	assert.False(t, d.Bound("Nope"))
}

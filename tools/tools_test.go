package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	return r
}

func TestExecute_Arithmetic(t *testing.T) {
	r := newRegistry(t)

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "sum", input: `{"numbers":[5,10]}`, want: `{"result":15,"operation":"sum","numbers":[5,10]}`},
		{name: "diff", input: `{"numbers":[10,3,2]}`, want: `{"result":5,"operation":"difference","numbers":[10,3,2]}`},
		{name: "diff", input: `{"numbers":[10,3]}`, want: `{"result":7,"operation":"difference","numbers":[10,3]}`},
		{name: "prod", input: `{"numbers":[2,3,4]}`, want: `{"result":24,"operation":"product","numbers":[2,3,4]}`},
		{name: "sum", input: `{"numbers":[]}`, want: `{"result":0,"operation":"sum","numbers":[]}`},
		{name: "prod", input: `{"numbers":[1.5,2]}`, want: `{"result":3,"operation":"product","numbers":[1.5,2]}`},
	}

	for _, tc := range cases {
		out, err := r.Execute(context.Background(), tc.name, json.RawMessage(tc.input))
		require.NoError(t, err, "%s %s", tc.name, tc.input)
		require.JSONEq(t, tc.want, string(out), "%s %s", tc.name, tc.input)
	}
}

func TestExecute_InputErrors(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Execute(context.Background(), "diff", json.RawMessage(`{"numbers":[]}`))
	require.EqualError(t, err, "numbers must not be empty")

	_, err = r.Execute(context.Background(), "sum", json.RawMessage(`{}`))
	require.EqualError(t, err, "numbers is required")

	_, err = r.Execute(context.Background(), "sum", nil)
	require.EqualError(t, err, "numbers is required")

	_, err = r.Execute(context.Background(), "prod", json.RawMessage(`{"numbers":"1,2"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid input")
}

func TestLookup_UnknownTool(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Lookup("divide")
	require.EqualError(t, err, "Tool divide not found")

	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "divide", unknown.Name)

	_, err = r.Execute(context.Background(), "divide", json.RawMessage(`{"numbers":[1]}`))
	require.True(t, errors.As(err, &unknown))
}

func TestLookup_EmptyName(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Lookup("")
	require.EqualError(t, err, "Tool name is missing")
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
}

func TestLookup_KnownNameNotRegistered(t *testing.T) {
	r, err := NewRegistry(NewSumTool())
	require.NoError(t, err)

	_, err = r.Lookup("prod")
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
}

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(NewSumTool(), NewSumTool())
	require.EqualError(t, err, "tool sum already registered")

	_, err = NewRegistry(nil)
	require.EqualError(t, err, "tool is nil")

	_, err = NewRegistry(&arithmeticTool{name: "divide"})
	require.Error(t, err)
}

func TestRegistry_ListKeepsOrder(t *testing.T) {
	r := newRegistry(t)
	var names []Name
	for _, tool := range r.List() {
		names = append(names, tool.Name())
	}
	require.Equal(t, []Name{Sum, Diff, Prod}, names)
}

func TestExecute_CanceledContext(t *testing.T) {
	r := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Execute(ctx, "sum", json.RawMessage(`{"numbers":[1]}`))
	require.ErrorIs(t, err, context.Canceled)
}

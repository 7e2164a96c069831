package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseToolCalls_Bare(t *testing.T) {
	calls := parseToolCalls(`{"toolCalls":[{"id":"call_1","name":"sum","input":{"numbers":[5,10]}}]}`)
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "sum", calls[0].Name)
	require.JSONEq(t, `{"numbers":[5,10]}`, string(calls[0].Input))
}

func TestParseToolCalls_ProseAndFence(t *testing.T) {
	text := "I'll compute that.\n```json\n{\n  \"toolCalls\": [\n    {\"id\": \"a\", \"name\": \"diff\", \"input\": {\"numbers\": [10, 3, 2]}},\n    {\"id\": \"b\", \"name\": \"prod\", \"input\": {\"numbers\": [2, 3, 4]}}\n  ]\n}\n```\nDone."
	calls := parseToolCalls(text)
	require.Len(t, calls, 2)
	require.Equal(t, "diff", calls[0].Name)
	require.Equal(t, "prod", calls[1].Name)
	require.Equal(t, "b", calls[1].ID)
}

func TestParseToolCalls_BracesInsideStrings(t *testing.T) {
	text := `note {not json} then {"toolCalls":[{"id":"x","name":"sum","input":{"numbers":[1],"note":"a } brace"}}]}`
	calls := parseToolCalls(text)
	require.Len(t, calls, 1)
	require.Equal(t, "x", calls[0].ID)
}

func TestParseToolCalls_GeneratesMissingID(t *testing.T) {
	calls := parseToolCalls(`{"toolCalls":[{"name":"sum","input":{"numbers":[1,2]}}]}`)
	require.Len(t, calls, 1)
	require.True(t, strings.HasPrefix(calls[0].ID, "call_"))
}

func TestParseToolCalls_MissingInputDefaultsToEmptyObject(t *testing.T) {
	calls := parseToolCalls(`{"toolCalls":[{"id":"c","name":"sum"}]}`)
	require.Len(t, calls, 1)
	require.Equal(t, "{}", string(calls[0].Input))
}

func TestParseToolCalls_KeepsEntryWithoutName(t *testing.T) {
	calls := parseToolCalls(`{"toolCalls":[{"id":"n","input":{"numbers":[1]}},"skip me"]}`)
	require.Len(t, calls, 1)
	require.Equal(t, "n", calls[0].ID)
	require.Empty(t, calls[0].Name)
}

func TestParseToolCalls_None(t *testing.T) {
	require.Empty(t, parseToolCalls("plain answer"))
	require.Empty(t, parseToolCalls(`{"toolCalls": "not an array"}`))
	require.Empty(t, parseToolCalls(`{"toolCalls":[{"id":"1","name":"sum"`))
	require.Empty(t, parseToolCalls(`{"toolCalls":[]}`))
	require.Empty(t, parseToolCalls(`{"answer":"toolCalls mentioned"}`))
}

func TestMatchBrace(t *testing.T) {
	require.Equal(t, 8, matchBrace(`{"a":{1}}x`, 0))
	require.Equal(t, -1, matchBrace(`{"a":"}"`, 0))
	require.Equal(t, 10, matchBrace(`{"a":"\"}"}`, 0))
}

func TestFindJSONObject(t *testing.T) {
	obj, ok := FindJSONObject("Here you go: {\"type\":\"text\",\"message\":\"hi {there}\"} thanks", nil)
	require.True(t, ok)
	require.Equal(t, `{"type":"text","message":"hi {there}"}`, obj)

	_, ok = FindJSONObject("no json at all", nil)
	require.False(t, ok)

	obj, ok = FindJSONObject(`{"a":1} {"b":2}`, func(o string) bool { return strings.Contains(o, `"b"`) })
	require.True(t, ok)
	require.Equal(t, `{"b":2}`, obj)
}

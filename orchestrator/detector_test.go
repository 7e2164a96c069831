package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONDetector_PlainTextForwarded(t *testing.T) {
	var d jsonDetector
	require.True(t, d.Feed("Hello"))
	require.True(t, d.Feed(", world"))
	require.Equal(t, statePlainText, d.State())
	require.Equal(t, "Hello, world", d.Buffer())
	require.Empty(t, d.Withheld())
}

func TestJSONDetector_BraceStartSwitches(t *testing.T) {
	var d jsonDetector
	require.False(t, d.Feed("  {\"tool"))
	require.Equal(t, stateCollectingJSON, d.State())
	require.False(t, d.Feed("Calls\": []}"))
	require.Equal(t, "  {\"toolCalls\": []}", d.Buffer())
	require.Equal(t, d.Buffer(), d.Withheld())
	require.True(t, d.MarkerSeen())
	require.Empty(t, d.Flushable())
}

func TestJSONDetector_BraceProseIsFlushable(t *testing.T) {
	var d jsonDetector
	require.False(t, d.Feed("{braces"))
	require.False(t, d.Feed(" are just prose}"))
	require.False(t, d.MarkerSeen())
	require.Equal(t, "{braces are just prose}", d.Flushable())
}

func TestJSONDetector_MarkerInBufferSwitches(t *testing.T) {
	var d jsonDetector
	require.True(t, d.Feed("Sure, calling now: "))
	// 标记跨越两个增量，第二个增量使 buffer 中出现完整标记
	require.True(t, d.Feed("```json\n{\"tool"))
	require.False(t, d.Feed("Calls\":[{\"name\":\"sum\"}]}"))
	require.Equal(t, stateCollectingJSON, d.State())
	require.Equal(t, "Calls\":[{\"name\":\"sum\"}]}", d.Withheld())
	require.Empty(t, d.Flushable())
}

func TestJSONDetector_NeverReturnsToPlainText(t *testing.T) {
	var d jsonDetector
	require.False(t, d.Feed("{"))
	require.False(t, d.Feed("just prose afterwards"))
	require.Equal(t, stateCollectingJSON, d.State())
	require.Equal(t, "collecting-json", d.State().String())
	require.Equal(t, "plain-text", statePlainText.String())
}

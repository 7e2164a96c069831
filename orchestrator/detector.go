package orchestrator

import (
	"strings"

	"github.com/LubyRuffy/toolchat/tools"
)

// detectorState 是流式 JSON 检测器的状态。
type detectorState int

const (
	statePlainText detectorState = iota
	stateCollectingJSON
)

func (s detectorState) String() string {
	switch s {
	case statePlainText:
		return "plain-text"
	case stateCollectingJSON:
		return "collecting-json"
	default:
		return "unknown"
	}
}

var toolCallsQuoted = `"` + tools.ToolCallsMarker + `"`

// jsonDetector 累积一步内的全部模型输出，并判断增量是否可以作为文本直接转发。
// 状态只会从 plain-text 单向切换到 collecting-json。
type jsonDetector struct {
	state  detectorState
	buffer strings.Builder
	// withheld 记录进入 collecting-json 后未转发的文本
	withheld strings.Builder
	// markerSeen 表示 buffer 中出现过 "toolCalls" 标记
	markerSeen bool
}

// Feed 追加一个增量，返回该增量是否应作为 text-delta 转发。
func (d *jsonDetector) Feed(delta string) bool {
	d.buffer.WriteString(delta)
	if !d.markerSeen && strings.Contains(d.buffer.String(), toolCallsQuoted) {
		d.markerSeen = true
	}
	if d.state == statePlainText {
		if d.markerSeen || strings.HasPrefix(strings.TrimSpace(delta), "{") {
			d.state = stateCollectingJSON
		}
	}
	if d.state == stateCollectingJSON {
		d.withheld.WriteString(delta)
		return false
	}
	return true
}

func (d *jsonDetector) State() detectorState { return d.state }

func (d *jsonDetector) Buffer() string { return d.buffer.String() }

func (d *jsonDetector) Withheld() string { return d.withheld.String() }

func (d *jsonDetector) MarkerSeen() bool { return d.markerSeen }

// Flushable 返回没有解析出工具调用时可以补发的文本。
// 只要出现过 "toolCalls" 标记就一律不补发，避免残缺的调用 JSON 作为文本到达客户端。
func (d *jsonDetector) Flushable() string {
	if d.markerSeen {
		return ""
	}
	return d.withheld.String()
}

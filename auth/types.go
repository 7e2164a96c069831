package auth

import "context"

// Provider 用于从不同来源读取模型服务的 API key。
type Provider interface {
	Auth(ctx context.Context) (apiKey string, err error)
}

type Source string

const (
	SourceEnv  Source = "env"
	SourceFile Source = "file"
	SourceAuto Source = "auto"
)

// Backend 是 API key 所属的模型服务。
type Backend string

const (
	BackendOpper     Backend = "opper"
	BackendAnthropic Backend = "anthropic"
)

// ParseBackend 规范化 provider 名称，空值按 opper 处理。
func ParseBackend(name string) (Backend, error) {
	switch Backend(normalize(name)) {
	case "", BackendOpper:
		return BackendOpper, nil
	case BackendAnthropic:
		return BackendAnthropic, nil
	default:
		return "", &UnsupportedError{Kind: "provider", Value: name}
	}
}

// UnsupportedError 表示无法识别的 auth source 或 provider。
type UnsupportedError struct {
	Kind  string
	Value string
}

func (e *UnsupportedError) Error() string {
	return "unsupported " + e.Kind + ": " + e.Value
}

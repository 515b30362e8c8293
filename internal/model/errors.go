package model

import "errors"

var (
	// ErrInvalidSnapshot 上游记录格式错误，调用方跳过该用户
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrFetchTimeout 上游请求超时，可重试
	ErrFetchTimeout = errors.New("upstream fetch timeout")
	// ErrFetchFailed 上游请求失败，可重试
	ErrFetchFailed = errors.New("upstream fetch failed")
	// ErrStaleRequest 响应到达时请求键已失效，静默丢弃
	ErrStaleRequest = errors.New("stale request")
)

// IsRetryable 上游 I/O 类错误
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFetchTimeout) || errors.Is(err, ErrFetchFailed)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind categorizes upstream errors for user messaging decisions.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindRateLimit  Kind = "rate_limit"
	KindTimeout    Kind = "timeout"
	KindOverloaded Kind = "overloaded"
	KindOther      Kind = "other"
)

// UpstreamError wraps a completion failure with its category. The wrapped
// error text may contain provider detail; it is safe to log but only
// KindOther surfaces it to the user.
type UpstreamError struct {
	Kind Kind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Classify maps an upstream failure onto the error taxonomy. Status codes
// decide when available; message sniffing covers OpenAI-compatible servers
// that return bare errors.
func Classify(err error) *UpstreamError {
	if err == nil {
		return nil
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case 401, 403:
		return &UpstreamError{Kind: KindAuth, Err: err}
	case 429:
		return &UpstreamError{Kind: KindRateLimit, Err: err}
	case 500, 502, 503, 529:
		return &UpstreamError{Kind: KindOverloaded, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"):
		return &UpstreamError{Kind: KindAuth, Err: err}
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return &UpstreamError{Kind: KindRateLimit, Err: err}
	case strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "service unavailable"):
		return &UpstreamError{Kind: KindOverloaded, Err: err}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return &UpstreamError{Kind: KindTimeout, Err: err}
	}

	return &UpstreamError{Kind: KindOther, Err: err}
}

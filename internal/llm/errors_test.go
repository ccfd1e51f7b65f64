package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimit},
		{500, KindOverloaded},
		{503, KindOverloaded},
		{418, KindOther},
	}

	for _, c := range cases {
		err := &openai.APIError{HTTPStatusCode: c.status, Message: "boom"}
		if got := Classify(err); got.Kind != c.want {
			t.Errorf("status %d: kind = %q, want %q", c.status, got.Kind, c.want)
		}
	}
}

func TestClassifyTimeout(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got.Kind != KindTimeout {
		t.Errorf("kind = %q, want timeout", got.Kind)
	}
	wrapped := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
	if got := Classify(wrapped); got.Kind != KindTimeout {
		t.Errorf("wrapped: kind = %q, want timeout", got.Kind)
	}
}

func TestClassifyMessageSniffing(t *testing.T) {
	cases := []struct {
		msg  string
		want Kind
	}{
		{"Incorrect API key provided", KindAuth},
		{"Rate limit reached for gpt-3.5-turbo", KindRateLimit},
		{"the server is overloaded", KindOverloaded},
		{"something unexpected", KindOther},
	}

	for _, c := range cases {
		if got := Classify(errors.New(c.msg)); got.Kind != c.want {
			t.Errorf("%q: kind = %q, want %q", c.msg, got.Kind, c.want)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	ue := &UpstreamError{Kind: KindAuth, Err: errors.New("nope")}
	if got := Classify(ue); got.Kind != KindAuth {
		t.Errorf("reclassified to %q", got.Kind)
	}

	wrapped := fmt.Errorf("turn failed: %w", ue)
	if got := Classify(wrapped); got.Kind != KindAuth {
		t.Errorf("wrapped reclassified to %q", got.Kind)
	}
}

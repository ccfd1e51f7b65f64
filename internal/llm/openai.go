// Package llm talks to the upstream completion service.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/mvanwyk/relaybot/internal/logging"
	"github.com/mvanwyk/relaybot/internal/session"
)

// Completer is the narrow interface the gateway calls through. Implementations
// must honor ctx cancellation and return *UpstreamError on failure.
type Completer interface {
	// Complete sends the prompt and returns the assistant text.
	Complete(ctx context.Context, turns []session.Turn, params session.Params, credential string) (string, error)
	// Probe checks that the credential is accepted by the upstream.
	Probe(ctx context.Context, credential string) error
}

// OpenAIClient is an OpenAI-compatible Completer. Each user supplies their
// own credential, so the underlying client is built per call rather than
// held on the struct.
type OpenAIClient struct {
	baseURL string
	timeout time.Duration
}

// NewOpenAIClient creates a client. baseURL may be empty for api.openai.com;
// timeout bounds every completion call.
func NewOpenAIClient(baseURL string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{baseURL: baseURL, timeout: timeout}
}

func (c *OpenAIClient) client(credential string) *openai.Client {
	cfg := openai.DefaultConfig(credential)
	if c.baseURL != "" {
		// OpenAI-compatible servers expect the /v1 suffix
		base := c.baseURL
		if !strings.HasSuffix(base, "/v1") && !strings.HasSuffix(base, "/v1/") {
			base = strings.TrimSuffix(base, "/") + "/v1"
		}
		cfg.BaseURL = base
	}
	return openai.NewClientWithConfig(cfg)
}

// Complete sends the chat completion request with the user's merged
// parameters. The credential never reaches the logs.
func (c *OpenAIClient) Complete(ctx context.Context, turns []session.Turn, params session.Params, credential string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    t.Role,
			Content: t.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:            params.Model(),
		Messages:         messages,
		Temperature:      params.Temperature(),
		MaxTokens:        params.MaxTokens(),
		TopP:             params.TopP(),
		FrequencyPenalty: params.FrequencyPenalty(),
		PresencePenalty:  params.PresencePenalty(),
	}

	start := time.Now()
	L_debug("llm: request started", "model", req.Model, "messages", len(messages))

	resp, err := c.client(credential).CreateChatCompletion(ctx, req)
	if err != nil {
		ue := Classify(err)
		L_warn("llm: request failed", "model", req.Model, "kind", string(ue.Kind), "elapsed", time.Since(start))
		return "", ue
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Kind: KindOther, Err: fmt.Errorf("upstream returned no choices")}
	}

	L_debug("llm: request finished",
		"model", req.Model,
		"elapsed", time.Since(start),
		"promptTokens", resp.Usage.PromptTokens,
		"completionTokens", resp.Usage.CompletionTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// Probe validates a credential by listing models, the cheapest authenticated
// call the API offers.
func (c *OpenAIClient) Probe(ctx context.Context, credential string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client(credential).ListModels(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

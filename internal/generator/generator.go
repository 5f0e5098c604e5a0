// Package generator calls the external chat completion service with a
// strict JSON schema and retries transient failures.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/validation"
)

const (
	DefaultModel       = openai.GPT4oMini
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
	DefaultTimeout     = 30 * time.Second
)

// SystemPrompt sets the assistant role for every request.
const SystemPrompt = "あなたは日本語のSNSコピーライターです。必ず指定されたJSON形式で回答してください。"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Retry       RetryPolicy
}

// ChatCompleter is the subset of *openai.Client the generator uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	client      ChatCompleter
	model       string
	temperature float32
	maxTokens   int
	policy      RetryPolicy
	sleep       SleepFunc
	logger      *logrus.Logger
}

type Option func(*Generator)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// New returns a generator backed by the OpenAI API. It returns
// ErrNotConfigured when no API key is set, callers then serve fallback copy.
func New(cfg Config, logger *logrus.Logger, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return NewWithClient(openai.NewClientWithConfig(clientConfig), cfg, logger, opts...), nil
}

func NewWithClient(client ChatCompleter, cfg Config, logger *logrus.Logger, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		policy:      cfg.Retry,
		sleep:       sleepContext,
		logger:      logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.temperature == 0 {
		g.temperature = DefaultTemperature
	}
	if g.maxTokens == 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.policy.MaxAttempts == 0 {
		g.policy = DefaultRetryPolicy()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate sends prompt under schema and decodes the validated reply into
// out. Every returned error is an *UpstreamError.
func (g *Generator) Generate(ctx context.Context, prompt string, schema *validation.OutputSchema, out any) error {
	maxAttempts := g.policy.attempts()

	var lastErr *UpstreamError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := g.attempt(ctx, prompt, schema, out)
		if err == nil {
			if attempt > 0 {
				g.logger.WithFields(logrus.Fields{
					"schema":   schema.Name,
					"attempts": attempt + 1,
				}).Info("Generator succeeded after retry")
			}
			return nil
		}

		lastErr = err
		lastErr.Attempts = attempt + 1

		if !g.policy.IsRetryable(lastErr) || attempt == maxAttempts-1 {
			break
		}

		delay := g.policy.Backoff(attempt, lastErr)
		g.logger.WithError(lastErr.Err).WithFields(logrus.Fields{
			"schema":  schema.Name,
			"kind":    lastErr.Kind,
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("Generator call failed, retrying")

		if err := g.sleep(ctx, delay); err != nil {
			return &UpstreamError{Kind: KindCanceled, Attempts: attempt + 1, Err: err}
		}
	}

	return lastErr
}

func (g *Generator) attempt(ctx context.Context, prompt string, schema *validation.OutputSchema, out any) *UpstreamError {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: schema.Raw,
				Strict: true,
			},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return classify(ctx, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return &UpstreamError{Kind: KindEmpty, Err: errors.New("no content in completion")}
	}
	content := []byte(resp.Choices[0].Message.Content)

	if err := schema.Validate(content).Err(); err != nil {
		return &UpstreamError{Kind: KindInvalidOutput, Err: err}
	}
	if err := json.Unmarshal(content, out); err != nil {
		return &UpstreamError{Kind: KindInvalidOutput, Err: fmt.Errorf("failed to decode completion: %w", err)}
	}
	return nil
}

// classify maps a client error onto an ErrorKind by HTTP status.
func classify(ctx context.Context, err error) *UpstreamError {
	if ctx.Err() != nil {
		return &UpstreamError{Kind: KindCanceled, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &UpstreamError{Kind: KindRateLimited, StatusCode: status, Err: err}
	case status >= http.StatusInternalServerError:
		return &UpstreamError{Kind: KindServer, StatusCode: status, Err: err}
	case status >= http.StatusBadRequest:
		return &UpstreamError{Kind: KindClient, StatusCode: status, Err: err}
	}

	// No status means the request never completed an HTTP exchange.
	return &UpstreamError{Kind: KindNetwork, Err: err}
}

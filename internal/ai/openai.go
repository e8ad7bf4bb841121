package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of the Gemini API.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

// ErrorKind classifies a ModelError.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindRequest           ErrorKind = "request"
	KindStatus            ErrorKind = "status"
	KindTimeout           ErrorKind = "timeout"
	KindEmpty             ErrorKind = "empty"
)

// ModelError is returned for every failed model call. Message is meant to be
// shown to the user as is.
type ModelError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ModelError) Error() string { return e.Message }

func (e *ModelError) Unwrap() error { return e.Err }

type Config struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

// OpenAIClient implements Caller with the Chat Completions API. The key is
// resolved through the credential cache on every call.
type OpenAIClient struct {
	creds       *CredentialCache
	baseURL     string
	model       string
	timeout     time.Duration
	temperature float32

	mu     sync.Mutex
	key    string
	client *openai.Client
}

func NewOpenAI(cfg Config, creds *CredentialCache) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIClient{
		creds:       creds,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}
}

// clientFor reuses the underlying client while the key stays the same.
func (o *OpenAIClient) clientFor(key string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil || o.key != key {
		cc := openai.DefaultConfig(key)
		cc.BaseURL = o.baseURL
		o.client = openai.NewClientWithConfig(cc)
		o.key = key
	}
	return o.client
}

// Call sends prompt followed by the source text and returns the joined,
// trimmed text of all choices.
func (o *OpenAIClient) Call(ctx context.Context, prompt, sourceText string) (string, error) {
	key, err := o.creds.Resolve(ctx)
	if err != nil {
		return "", &ModelError{Kind: KindMissingCredential, Message: "could not read API key: " + err.Error(), Err: err}
	}
	if key == "" {
		return "", &ModelError{Kind: KindMissingCredential, Message: "No API key found. Please add it in Settings."}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	start := time.Now()
	resp, err := o.clientFor(key).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("%s\n\nSource:\n%s", prompt, sourceText)},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		merr := o.classify(ctx, err)
		slog.Error("ai: model call failed", "model", o.model, "kind", merr.Kind, "status", merr.Status, "err", err)
		return "", merr
	}

	parts := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		if t := strings.TrimSpace(c.Message.Content); t != "" {
			parts = append(parts, t)
		}
	}
	out := strings.TrimSpace(strings.Join(parts, "\n"))
	if out == "" {
		return "", &ModelError{Kind: KindEmpty, Message: "The model returned no content."}
	}
	slog.Debug("ai: model call done", "model", o.model, "took", time.Since(start), "chars", len(out))
	return out, nil
}

func (o *OpenAIClient) classify(ctx context.Context, err error) *ModelError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ModelError{Kind: KindTimeout, Message: fmt.Sprintf("The model request timed out after %s.", o.timeout), Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		o.dropRejectedKey(apiErr.HTTPStatusCode)
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = "Model API error."
		}
		return &ModelError{Kind: KindStatus, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		o.dropRejectedKey(reqErr.HTTPStatusCode)
		return &ModelError{Kind: KindStatus, Status: reqErr.HTTPStatusCode, Message: fmt.Sprintf("Model API error (status %d).", reqErr.HTTPStatusCode), Err: err}
	}
	return &ModelError{Kind: KindRequest, Message: "Model request failed: " + err.Error(), Err: err}
}

// dropRejectedKey forces a reload after the API refuses the key.
func (o *OpenAIClient) dropRejectedKey(status int) {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		o.creds.Invalidate()
	}
}

// Package inference provides implementations of domain.InferenceService:
// an HTTP client for an OpenAI-compatible chat endpoint, a circuit breaker
// wrapper, and a scriptable mock for development and tests.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"caregate/internal/domain"
	"caregate/internal/infra/tracer"
)

// maxResponseBody bounds how much of an API response body is read.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// HTTPClientConfig configures the HTTP inference client.
type HTTPClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	ConnTimeout time.Duration
	RespTimeout time.Duration
}

// HTTPClient calls an OpenAI-compatible /v1/chat/completions endpoint.
type HTTPClient struct {
	cfg    HTTPClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClient builds an HTTP inference client with pooled transport.
func NewHTTPClient(cfg HTTPClientConfig, logger *slog.Logger) *HTTPClient {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = 30 * time.Second
	}
	respTimeout := cfg.RespTimeout
	if respTimeout <= 0 {
		respTimeout = 60 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   connTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: respTimeout,
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       120 * time.Second,
				ForceAttemptHTTP2:     true,
			},
			Timeout: connTimeout + respTimeout,
		},
	}
}

// Name implements domain.InferenceService.
func (c *HTTPClient) Name() string { return "http" }

// Wire types for the OpenAI-compatible chat completion API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements domain.InferenceService.
func (c *HTTPClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	ctx, span := tracer.StartSpan(ctx, "inference.generate")
	defer span.End()

	model := req.ModelHint
	if model == "" {
		model = c.cfg.Model
	}
	span.SetAttributes(
		tracer.StringAttr("inference.provider", c.Name()),
		tracer.StringAttr("inference.model", model),
	)

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	respBody, err := doJSONRequest(ctx, c.client, c.cfg.BaseURL+"/v1/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrInferenceFailed, err)
	}
	if len(parsed.Choices) == 0 {
		err := fmt.Errorf("%w: response contains no choices", domain.ErrInferenceFailed)
		tracer.RecordError(span, err)
		return nil, err
	}

	result := &domain.GenerateResult{
		Content:    parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
		ModelUsed:  parsed.Model,
	}
	c.logger.Debug("inference completed",
		"provider", c.Name(),
		"model", result.ModelUsed,
		"tokens", result.TokensUsed,
	)
	tracer.SetOK(span)
	return result, nil
}

// doJSONRequest performs a JSON POST and returns the response body. Non-200
// statuses map to domain errors so callers and the circuit breaker can
// classify them.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceFailed, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrInferenceFailed, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// mapHTTPError maps an HTTP status and body to a domain error.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("API error %d: %s", statusCode, body)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
	case statusCode == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %s", domain.ErrTimeout, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrProviderError, detail)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInferenceFailed, detail)
	}
}

var _ domain.InferenceService = (*HTTPClient)(nil)

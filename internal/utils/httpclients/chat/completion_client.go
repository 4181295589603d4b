// Package chat implements the HTTP client for OpenAI-compatible completion
// endpoints, including the pull-based streaming reader the relay consumes.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/utils/platformerrors"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"
)

const (
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

type StreamOption func(*resty.Request)

func WithHeader(key, value string) StreamOption {
	return func(r *resty.Request) {
		if strings.TrimSpace(key) == "" {
			return
		}
		r.SetHeader(key, value)
	}
}

func WithAcceptEncodingIdentity() StreamOption {
	return WithHeader("Accept-Encoding", "identity")
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type choiceDelta struct {
	Content string `json:"content"`
}

type streamChoice struct {
	Delta choiceDelta `json:"delta"`
}

// Chunk is one decoded SSE event of an upstream completion stream. Raw holds
// the original "data: ..." line for passthrough, Delta the extracted text.
type Chunk struct {
	Raw   string
	Delta string
	Usage *TokenUsage
}

type CompletionClient struct {
	client  *resty.Client
	baseURL string
	name    string
}

func NewCompletionClient(client *resty.Client, name, baseURL string) *CompletionClient {
	return &CompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		name:    name,
	}
}

// CreateChatCompletion performs a blocking, non-streaming completion request.
func (c *CompletionClient) CreateChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "request failed")
	}
	return &respBody, nil
}

// OpenStream issues a streaming completion request and returns a
// CompletionStream. Upstream rejections are typed before any stream exists:
// 429 maps to ErrorTypeRateLimited, other 4xx to ErrorTypeUpstreamRejected.
func (c *CompletionClient) OpenStream(ctx context.Context, apiKey string, request openai.ChatCompletionRequest, opts ...StreamOption) (*CompletionStream, error) {
	request.Stream = true

	req := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetDoNotParseResponse(true)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(req)
	}

	if req.Header.Get("Accept-Encoding") == "" {
		req.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil, "1b3ab461-dbf9-4034-8abb-dfc6ea8486c5")
	}

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	return &CompletionStream{
		name:    c.name,
		body:    resp.RawResponse.Body,
		scanner: scanner,
	}, nil
}

// CompletionStream reads decoded chunks off an open SSE response. It is not
// restartable; after Recv returns a non-nil error every subsequent call
// returns the same error.
type CompletionStream struct {
	name    string
	body    io.ReadCloser
	scanner *bufio.Scanner
	err     error
}

// Recv returns the next chunk. io.EOF signals the clean end of the stream,
// either the upstream [DONE] marker or body exhaustion. Any other error is a
// mid-stream transport fault.
func (s *CompletionStream) Recv() (Chunk, error) {
	if s.err != nil {
		return Chunk{}, s.err
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		data, found := strings.CutPrefix(line, dataPrefix)
		if !found {
			// Comments, event names, and blank keep-alive lines.
			continue
		}

		if strings.TrimSpace(data) == doneMarker {
			s.err = io.EOF
			return Chunk{}, s.err
		}

		chunk := Chunk{Raw: line}

		var streamData struct {
			Choices []streamChoice `json:"choices"`
			Usage   *TokenUsage    `json:"usage"`
		}
		if err := json.Unmarshal([]byte(data), &streamData); err != nil {
			log := logger.GetLogger()
			log.Error().Err(err).Str("client", s.name).Str("data", data).Msg("failed to parse stream chunk JSON")
			continue
		}

		for _, choice := range streamData.Choices {
			chunk.Delta += choice.Delta.Content
		}
		chunk.Usage = streamData.Usage

		return chunk, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.err = err
	} else {
		s.err = io.EOF
	}
	return Chunk{}, s.err
}

// Close releases the underlying connection.
func (s *CompletionStream) Close() error {
	if closeErr := s.body.Close(); closeErr != nil {
		log := logger.GetLogger()
		log.Error().Err(closeErr).Str("client", s.name).Msg("unable to close response body")
		return closeErr
	}
	return nil
}

func (c *CompletionClient) prepareRequest(ctx context.Context, apiKey string) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	return req
}

func (c *CompletionClient) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *CompletionClient) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	errorType := platformerrors.ErrorTypeExternal
	switch {
	case statusCode(resp) == http.StatusTooManyRequests:
		errorType = platformerrors.ErrorTypeRateLimited
	case statusCode(resp) >= 400 && statusCode(resp) < 500:
		errorType = platformerrors.ErrorTypeUpstreamRejected
	}

	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errorType, message, nil, "3476dd55-5fc0-4653-bd10-665895ecc099")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errorType, message, nil, "8cd2cae7-9ad9-40fe-ac00-8f9b24251064")
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errorType, message, nil, "b8797de4-38cb-4bd9-9ae8-b9a04e70f6ab")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errorType, fmt.Sprintf("%s: %s", message, trimmed), nil, "a1f46e0d-4017-4411-ac05-987946c3066d")
}

func (c *CompletionClient) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed
}

func statusCode(resp *resty.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode()
}

// Package inference selects and wraps the upstream completion provider.
package inference

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"glowchat/internal/config"
	"glowchat/internal/domain/stream"
	"glowchat/internal/utils/httpclients/chat"
)

// CompletionStream is an open upstream stream of decoded chunks.
type CompletionStream interface {
	Recv() (chat.Chunk, error)
	Close() error
}

// CompletionProvider issues completion requests against one configured
// upstream. The implementation is chosen once at startup; callers never
// dispatch on provider names.
type CompletionProvider interface {
	Name() string
	DefaultModel() string
	CreateCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
	StreamCompletion(ctx context.Context, request openai.ChatCompletionRequest) (CompletionStream, error)
}

// NewProviderFromConfig builds the configured provider variant.
func NewProviderFromConfig(cfg *config.Config, client *resty.Client) CompletionProvider {
	completionClient := chat.NewCompletionClient(client, cfg.ProviderKind, cfg.ProviderBaseURL)

	if cfg.ProviderKind == "local" {
		return &localProvider{
			client:       completionClient,
			defaultModel: cfg.DefaultModel,
		}
	}

	return &openAICompatibleProvider{
		client:       completionClient,
		apiKey:       cfg.ProviderAPIKey,
		defaultModel: cfg.DefaultModel,
	}
}

// openAICompatibleProvider talks to a hosted OpenAI-compatible API with
// bearer authentication.
type openAICompatibleProvider struct {
	client       *chat.CompletionClient
	apiKey       string
	defaultModel string
}

func (p *openAICompatibleProvider) Name() string { return "openai" }

func (p *openAICompatibleProvider) DefaultModel() string { return p.defaultModel }

func (p *openAICompatibleProvider) CreateCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	return p.client.CreateChatCompletion(ctx, p.apiKey, p.applyDefaults(request))
}

func (p *openAICompatibleProvider) StreamCompletion(ctx context.Context, request openai.ChatCompletionRequest) (CompletionStream, error) {
	return p.client.OpenStream(ctx, p.apiKey, p.applyDefaults(request))
}

func (p *openAICompatibleProvider) applyDefaults(request openai.ChatCompletionRequest) openai.ChatCompletionRequest {
	if request.Model == "" {
		request.Model = p.defaultModel
	}
	return request
}

// localProvider talks to a self-hosted inference engine exposing the same
// wire format without authentication.
type localProvider struct {
	client       *chat.CompletionClient
	defaultModel string
}

func (p *localProvider) Name() string { return "local" }

func (p *localProvider) DefaultModel() string { return p.defaultModel }

func (p *localProvider) CreateCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if request.Model == "" {
		request.Model = p.defaultModel
	}
	return p.client.CreateChatCompletion(ctx, "", request)
}

func (p *localProvider) StreamCompletion(ctx context.Context, request openai.ChatCompletionRequest) (CompletionStream, error) {
	if request.Model == "" {
		request.Model = p.defaultModel
	}
	return p.client.OpenStream(ctx, "", request)
}

// fragmentSource adapts a CompletionStream to the relay's Source interface.
type fragmentSource struct {
	inner CompletionStream
}

// NewFragmentSource wraps an open upstream stream for the relay.
func NewFragmentSource(inner CompletionStream) stream.Source {
	return &fragmentSource{inner: inner}
}

func (f *fragmentSource) Recv() (stream.Fragment, error) {
	chunk, err := f.inner.Recv()
	if err != nil {
		return stream.Fragment{}, err
	}
	return stream.Fragment{Text: chunk.Delta, Raw: chunk.Raw}, nil
}

func (f *fragmentSource) Close() error {
	return f.inner.Close()
}

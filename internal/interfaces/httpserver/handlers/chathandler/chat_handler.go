package chathandler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"glowchat/internal/domain/conversation"
	"glowchat/internal/domain/stream"
	"glowchat/internal/infrastructure/inference"
	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/infrastructure/metrics"
	"glowchat/internal/infrastructure/observability"
	"glowchat/internal/interfaces/httpserver/middlewares"
	chatrequests "glowchat/internal/interfaces/httpserver/requests/chat"
	"glowchat/internal/utils/platformerrors"
)

// ChatCompletionResult wraps the response with conversation context.
// StoreFailed reports that the completion succeeded but the assistant
// message could not be saved.
type ChatCompletionResult struct {
	Response          *openai.ChatCompletionResponse
	ConversationID    string
	ConversationTitle *string
	Streamed          bool
	StoreFailed       bool
}

// ChatHandler runs completion turns: it assembles the prompt from stored
// history, calls the configured provider, relays the stream to the client,
// and persists the exchange.
type ChatHandler struct {
	provider            inference.CompletionProvider
	relay               *stream.Relay
	conversationService *conversation.ConversationService
}

func NewChatHandler(
	provider inference.CompletionProvider,
	relay *stream.Relay,
	conversationService *conversation.ConversationService,
) *ChatHandler {
	return &ChatHandler{
		provider:            provider,
		relay:               relay,
		conversationService: conversationService,
	}
}

// CreateChatCompletion handles chat completion requests (both streaming and non-streaming)
func (h *ChatHandler) CreateChatCompletion(
	ctx context.Context,
	reqCtx *gin.Context,
	userID uint,
	request chatrequests.ChatCompletionRequest,
) (*ChatCompletionResult, error) {
	ctx, span := observability.StartSpan(ctx, "glowchat", "ChatHandler.CreateChatCompletion")
	defer span.End()

	if request.Model == "" {
		request.Model = h.provider.DefaultModel()
	}

	observability.AddSpanAttributes(ctx,
		attribute.String("chat.model", request.Model),
		attribute.Bool("chat.stream", request.Stream),
		attribute.Int("chat.message_count", len(request.Messages)),
		attribute.Int("user.id", int(userID)),
	)
	reqCtx.Set("model", request.Model)
	reqCtx.Set("stream", request.Stream)

	userTurn, ok := lastUserContent(request.Messages)
	if !ok {
		err := platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "request must contain a user message", nil, "1c8e4f72-9a3d-4b56-8c1e-5d7f2a9b6c43")
		observability.RecordError(ctx, err)
		return nil, err
	}

	var conv *conversation.Conversation
	var err error
	withConversation := request.Conversation != nil

	if withConversation {
		conv, err = h.getOrCreateConversation(ctx, userID, request.Conversation)
		if err != nil {
			observability.RecordError(ctx, err)
			return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to get or create conversation")
		}

		conv = h.ensureConversationTitle(ctx, conv, userTurn)
		observability.AddSpanAttributes(ctx, attribute.String("conversation.id", conv.PublicID))

		// Replace the request messages with the assembled prompt: system
		// prompt, stored history, then the new user turn.
		history, histErr := h.conversationService.ListMessages(ctx, conv, nil)
		if histErr != nil {
			observability.RecordError(ctx, histErr)
			return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, histErr, "failed to load conversation history")
		}
		request.Messages = conversation.BuildPrompt(request.SystemPrompt, dereferenceMessages(history), userTurn)
	}

	if len(request.Messages) == 0 {
		err := platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "messages cannot be empty", nil, "7e2a9c54-3f1b-4d68-a5e2-8c6d1f9b3a72")
		observability.RecordError(ctx, err)
		return nil, err
	}

	store := withConversation && request.ShouldStore()

	llmStart := time.Now()
	var result *ChatCompletionResult
	if request.Stream {
		result, err = h.streamCompletion(ctx, reqCtx, conv, userTurn, store, request.ChatCompletionRequest)
	} else {
		result, err = h.callCompletion(ctx, conv, userTurn, store, request.ChatCompletionRequest)
	}
	metrics.RecordLLMDuration(request.Model, h.provider.Name(), request.Stream, time.Since(llmStart).Seconds())

	if err != nil {
		observability.RecordError(ctx, err)
		metrics.RecordProviderError(h.provider.Name(), string(platformerrors.ErrorTypeOf(err)))
		return nil, err
	}

	if conv != nil {
		result.ConversationID = conv.PublicID
		result.ConversationTitle = conv.Title
	}
	return result, nil
}

// callCompletion handles the non-streaming path: one upstream round trip,
// then persistence of the exchange when requested.
func (h *ChatHandler) callCompletion(
	ctx context.Context,
	conv *conversation.Conversation,
	userTurn string,
	store bool,
	request openai.ChatCompletionRequest,
) (*ChatCompletionResult, error) {
	response, err := h.provider.CreateCompletion(ctx, request)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "chat completion failed")
	}

	if response.Usage.TotalTokens > 0 {
		metrics.RecordTokens(request.Model, h.provider.Name(), response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}

	storeFailed := false
	if store && conv != nil && len(response.Choices) > 0 {
		assistantText := response.Choices[0].Message.Content
		if persistErr := h.persistExchange(ctx, conv, userTurn, assistantText, request.Model, conversation.MessageStatusCompleted); persistErr != nil {
			storeFailed = true
		}
	}

	return &ChatCompletionResult{Response: response, StoreFailed: storeFailed}, nil
}

// streamCompletion opens the upstream stream and relays it to the client as
// SSE. The relay owns the terminal transition: it appends the interruption or
// cancellation marker and persists the assistant message exactly once.
func (h *ChatHandler) streamCompletion(
	ctx context.Context,
	reqCtx *gin.Context,
	conv *conversation.Conversation,
	userTurn string,
	store bool,
	request openai.ChatCompletionRequest,
) (*ChatCompletionResult, error) {
	upstream, err := h.provider.StreamCompletion(ctx, request)
	if err != nil {
		// Nothing was opened; no message is persisted.
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to open completion stream")
	}

	flusher, ok := middlewares.PrepareSSE(reqCtx)
	if !ok {
		upstream.Close()
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, "streaming unsupported by connection", nil, "9d5b3f81-2c7e-4a64-b8d5-6f1a4c9e2b73")
	}

	metrics.IncrementActiveStreams(request.Model)
	defer metrics.DecrementActiveStreams(request.Model)

	firstFragment := true
	streamStart := time.Now()
	forward := func(fragment stream.Fragment) error {
		if firstFragment {
			firstFragment = false
			metrics.RecordFirstToken(request.Model, h.provider.Name(), time.Since(streamStart).Seconds())
		}
		if fragment.Raw == "" {
			return nil
		}
		if _, werr := reqCtx.Writer.WriteString("data: " + fragment.Raw + "\n\n"); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	}

	persist := func(persistCtx context.Context, result stream.Result) error {
		metrics.RecordStreamSession(request.Model, string(result.State))
		if !store || conv == nil {
			return nil
		}
		return h.persistExchange(persistCtx, conv, userTurn, result.Content, request.Model, stateToMessageStatus(result.State))
	}

	result, runErr := h.relay.Run(ctx, inference.NewFragmentSource(upstream), forward, persist)

	if result.State == stream.StateErrored {
		// The response is already streaming, so the request cannot fail
		// anymore; tell the client the stream broke via an error event.
		log := logger.GetLogger()
		log.Error().Err(result.Err).
			Str("model", request.Model).
			Int("fragments", result.FragmentCount).
			Msg("upstream stream failed")
		if result.Err != nil {
			observability.RecordError(ctx, result.Err)
		}
		reqCtx.Writer.WriteString(`data: {"error":{"type":"upstream_error","message":"the model stream was interrupted"}}` + "\n\n")
		flusher.Flush()
	}

	if runErr != nil {
		log := logger.GetLogger()
		log.Error().Err(runErr).
			Str("model", request.Model).
			Msg("stream finished but persistence failed")
		reqCtx.Writer.WriteString(`data: {"error":{"type":"persistence_error","message":"assistant message was not saved"}}` + "\n\n")
		flusher.Flush()
	}

	h.writeStreamTrailer(reqCtx, flusher, conv, request.Model)

	return &ChatCompletionResult{Streamed: true}, nil
}

// writeStreamTrailer emits the conversation context event followed by the
// [DONE] marker.
func (h *ChatHandler) writeStreamTrailer(reqCtx *gin.Context, flusher interface{ Flush() }, conv *conversation.Conversation, model string) {
	if conv != nil && conv.PublicID != "" {
		conversationData := map[string]any{
			"id": conv.PublicID,
		}
		if conv.Title != nil && *conv.Title != "" {
			conversationData["title"] = *conv.Title
		}

		trailer := map[string]any{
			"conversation": conversationData,
			"created":      time.Now().Unix(),
			"id":           "",
			"model":        model,
			"object":       "chat.completion.chunk",
		}

		if payload, err := json.Marshal(trailer); err == nil {
			reqCtx.Writer.WriteString("data: " + string(payload) + "\n\n")
		}
	}

	reqCtx.Writer.WriteString("data: [DONE]\n\n")
	flusher.Flush()
}

// persistExchange appends the user turn and the assistant message to the
// conversation. A failed user-message write does not block the assistant
// write; both are logged.
func (h *ChatHandler) persistExchange(
	ctx context.Context,
	conv *conversation.Conversation,
	userTurn string,
	assistantText string,
	model string,
	status conversation.MessageStatus,
) error {
	log := logger.GetLogger()

	if _, err := h.conversationService.AppendMessage(ctx, conv, conversation.AppendMessageInput{
		Role:    conversation.MessageRoleUser,
		Content: userTurn,
		Status:  conversation.MessageStatusCompleted,
	}); err != nil {
		log.Warn().Err(err).
			Str("conversation_id", conv.PublicID).
			Msg("failed to store user message")
	}

	if _, err := h.conversationService.AppendMessage(ctx, conv, conversation.AppendMessageInput{
		Role:    conversation.MessageRoleAssistant,
		Content: assistantText,
		Status:  status,
		Model:   &model,
	}); err != nil {
		log.Error().Err(err).
			Str("conversation_id", conv.PublicID).
			Msg("failed to store assistant message")
		return err
	}

	return nil
}

// getOrCreateConversation resolves the referenced conversation or creates a
// fresh one when the reference carries no ID.
func (h *ChatHandler) getOrCreateConversation(
	ctx context.Context,
	userID uint,
	convRef *chatrequests.ConversationReference,
) (*conversation.Conversation, error) {
	if convRef.GetID() != "" {
		return h.conversationService.GetConversationByPublicIDAndUserID(ctx, convRef.GetID(), userID)
	}

	return h.conversationService.CreateConversationWithInput(ctx, conversation.CreateConversationInput{
		UserID: userID,
	})
}

// ensureConversationTitle derives a title from the first user turn when the
// conversation has none yet.
func (h *ChatHandler) ensureConversationTitle(ctx context.Context, conv *conversation.Conversation, userTurn string) *conversation.Conversation {
	if conv == nil || (conv.Title != nil && *conv.Title != "") {
		return conv
	}

	title := conversation.DeriveTitle(userTurn)
	if title == nil {
		return conv
	}

	updated, err := h.conversationService.UpdateConversationWithInput(ctx, conv, conversation.UpdateConversationInput{
		Title: title,
	})
	if err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).
			Str("conversation_id", conv.PublicID).
			Msg("failed to update conversation title")
		return conv
	}
	return updated
}

// lastUserContent returns the content of the last user-role message.
func lastUserContent(messages []openai.ChatCompletionMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.ChatMessageRoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}

func dereferenceMessages(messages []*conversation.Message) []conversation.Message {
	out := make([]conversation.Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

func stateToMessageStatus(state stream.State) conversation.MessageStatus {
	switch state {
	case stream.StateCompleted:
		return conversation.MessageStatusCompleted
	case stream.StateCancelled:
		return conversation.MessageStatusCancelled
	default:
		return conversation.MessageStatusInterrupted
	}
}

// Package chatclient is a Go client for the chat completion API. It consumes
// the server-sent event stream, reassembles deltas into a live message view,
// and supports cancelling an in-flight stream.
package chatclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"resty.dev/v3"
)

const (
	dataPrefix        = "data: "
	doneMarker        = "[DONE]"
	interruptedMarker = "[Response interrupted]"
	cancelledMarker   = "[Response cancelled]"

	scannerInitialBuffer = 12 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024
)

// Status describes the lifecycle of a reassembled message.
type Status string

const (
	StatusStreaming   Status = "streaming"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusCancelled   Status = "cancelled"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the request body for /v1/chat/completions.
type CompletionRequest struct {
	Model        string    `json:"model,omitempty"`
	Messages     []Message `json:"messages"`
	Stream       bool      `json:"stream,omitempty"`
	Conversation *string   `json:"conversation,omitempty"`
	SystemPrompt *string   `json:"system_prompt,omitempty"`
	Store        *bool     `json:"store,omitempty"`
}

// ConversationContext identifies the server-side conversation an exchange
// was stored under.
type ConversationContext struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// CompletionResponse is the non-streaming response body.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Conversation *ConversationContext `json:"conversation,omitempty"`
}

// Snapshot is a point-in-time view of a reassembled message.
type Snapshot struct {
	Content           string
	Status            Status
	ConversationID    string
	ConversationTitle string
	Err               error
}

// Client talks to a chat completion server.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
	window  time.Duration
}

type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRestyClient replaces the default HTTP client.
func WithRestyClient(client *resty.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithCoalesceWindow batches update callbacks so at most one fires per
// window, independent of upstream chunking granularity. Zero disables
// batching and every fragment triggers a callback.
func WithCoalesceWindow(window time.Duration) Option {
	return func(c *Client) {
		c.window = window
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    resty.New(),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CreateCompletion performs a blocking, non-streaming completion request.
func (c *Client) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	request.Stream = false

	var respBody CompletionResponse
	resp, err := c.prepareRequest(ctx).
		SetBody(request).
		SetResult(&respBody).
		Post(c.baseURL + "/v1/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, errorFromResponse(resp)
	}
	return &respBody, nil
}

// StreamCompletion opens a streaming completion request and returns a
// Session that reassembles the response in the background. onUpdate, when
// non-nil, is called with a snapshot after each appended fragment (or once
// per coalescing window) and once more on the terminal transition.
func (c *Client) StreamCompletion(ctx context.Context, request CompletionRequest, onUpdate func(Snapshot)) (*Session, error) {
	request.Stream = true

	streamCtx, cancel := context.WithCancel(ctx)

	resp, err := c.prepareRequest(streamCtx).
		SetHeader("Accept", "text/event-stream").
		SetBody(request).
		SetDoNotParseResponse(true).
		Post(c.baseURL + "/v1/chat/completions")
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.IsError() {
		cancel()
		return nil, errorFromResponse(resp)
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		cancel()
		return nil, errors.New("streaming request returned no body")
	}

	session := &Session{
		body:     resp.RawResponse.Body,
		cancel:   cancel,
		onUpdate: onUpdate,
		window:   c.window,
		status:   StatusStreaming,
		done:     make(chan struct{}),
	}
	go session.consume(streamCtx)
	return session, nil
}

func (c *Client) prepareRequest(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if c.token != "" {
		req.SetHeader("Authorization", "Bearer "+c.token)
	}
	return req
}

// Session is one in-flight streaming completion. The in-progress message is
// distinct from any finalized message until the terminal transition; read it
// with Message or wait for the final view with Wait.
type Session struct {
	body     io.ReadCloser
	cancel   context.CancelFunc
	onUpdate func(Snapshot)
	window   time.Duration
	done     chan struct{}

	mu          sync.Mutex
	content     strings.Builder
	status      Status
	err         error
	serverFault bool
	convID      string
	convTitle   string
	timer       *time.Timer
	dirty       bool
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Conversation *ConversationContext `json:"conversation"`
	Error        *streamError         `json:"error"`
}

// streamError is an in-band error event sent by the server mid-stream.
type streamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Session) consume(ctx context.Context) {
	defer close(s.done)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		data, found := strings.CutPrefix(scanner.Text(), dataPrefix)
		if !found {
			continue
		}
		if strings.TrimSpace(data) == doneMarker {
			s.finishStreamEnd()
			return
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if event.Error != nil {
			s.recordServerError(event.Error.Type, event.Error.Message)
			continue
		}
		if event.Conversation != nil {
			s.setConversation(event.Conversation)
			continue
		}
		for _, choice := range event.Choices {
			if choice.Delta.Content != "" {
				s.append(choice.Delta.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			// Cancel, or a cancelled parent context. Either way the session
			// resolves as cancelled; finish is a no-op when Cancel ran first.
			s.finish(StatusCancelled, nil)
			return
		}
		s.finish(StatusInterrupted, err)
		return
	}
	s.finishStreamEnd()
}

// recordServerError notes an in-band error event. An upstream fault means the
// message text stopped short, so the session resolves interrupted once the
// stream ends; a persistence failure leaves the text intact and only sets Err.
func (s *Session) recordServerError(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = fmt.Errorf("server reported %s: %s", kind, message)
	}
	if kind != "persistence_error" {
		s.serverFault = true
	}
}

// finishStreamEnd resolves a stream the server terminated itself, honoring
// any error event received along the way.
func (s *Session) finishStreamEnd() {
	s.mu.Lock()
	fault := s.serverFault
	err := s.err
	s.mu.Unlock()

	if fault {
		s.finish(StatusInterrupted, err)
		return
	}
	s.finish(StatusCompleted, err)
}

// Cancel aborts the network read and marks the local message cancelled.
// Fragments still in flight when Cancel is called are dropped.
func (s *Session) Cancel() {
	s.finish(StatusCancelled, nil)
	s.cancel()
}

// Wait blocks until the stream has terminated and the reader goroutine has
// exited, then returns the final snapshot.
func (s *Session) Wait() Snapshot {
	<-s.done
	return s.Message()
}

// Message returns the current view of the reassembled message.
func (s *Session) Message() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) append(delta string) {
	s.mu.Lock()
	if s.status != StatusStreaming {
		s.mu.Unlock()
		return
	}
	s.content.WriteString(delta)

	var notify *Snapshot
	if s.onUpdate != nil {
		if s.window <= 0 {
			snap := s.snapshotLocked()
			notify = &snap
		} else {
			s.dirty = true
			if s.timer == nil {
				s.timer = time.AfterFunc(s.window, s.flushPending)
			}
		}
	}
	s.mu.Unlock()

	if notify != nil {
		s.onUpdate(*notify)
	}
}

func (s *Session) flushPending() {
	s.mu.Lock()
	s.timer = nil
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.onUpdate(snapshot)
}

func (s *Session) setConversation(conv *ConversationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convID = conv.ID
	if conv.Title != nil {
		s.convTitle = *conv.Title
	}
}

// finish applies the terminal transition once; later calls are no-ops, so a
// Cancel racing with natural completion resolves to whichever ran first.
func (s *Session) finish(status Status, err error) {
	s.mu.Lock()
	if s.status != StatusStreaming {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.err = err
	switch status {
	case StatusInterrupted:
		s.appendMarkerLocked(interruptedMarker)
	case StatusCancelled:
		s.appendMarkerLocked(cancelledMarker)
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dirty = false
	snapshot := s.snapshotLocked()
	handler := s.onUpdate
	s.mu.Unlock()

	if handler != nil {
		handler(snapshot)
	}
}

func (s *Session) appendMarkerLocked(marker string) {
	if s.content.Len() > 0 {
		s.content.WriteString(" ")
	}
	s.content.WriteString(marker)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Content:           s.content.String(),
		Status:            s.status,
		ConversationID:    s.convID,
		ConversationTitle: s.convTitle,
		Err:               s.err,
	}
}

func errorFromResponse(resp *resty.Response) error {
	if resp == nil {
		return errors.New("completion request failed")
	}
	detail := ""
	if resp.RawResponse != nil && resp.RawResponse.Body != nil {
		body, err := io.ReadAll(resp.RawResponse.Body)
		resp.RawResponse.Body.Close()
		if err == nil {
			detail = strings.TrimSpace(string(body))
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(resp.String())
	}
	if detail == "" {
		return fmt.Errorf("completion request rejected: %s", resp.Status())
	}
	return fmt.Errorf("completion request rejected: %s: %s", resp.Status(), detail)
}

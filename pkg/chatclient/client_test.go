package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func testCompletionRequest() CompletionRequest {
	return CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
}

func TestStreamCompletion_ReassemblesDeltas(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`: keep-alive comment`,
		`data: {"choices":[{"delta":{"content":"!"}}]}`,
		`data: [DONE]`,
	})
	defer server.Close()

	client := New(server.URL)

	var mu sync.Mutex
	var updates []Snapshot
	session, err := client.StreamCompletion(context.Background(), testCompletionRequest(), func(s Snapshot) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.Status != StatusCompleted {
		t.Errorf("final status = %q, want %q", final.Status, StatusCompleted)
	}
	if final.Content != "Hello!" {
		t.Errorf("final content = %q, want %q", final.Content, "Hello!")
	}
	if final.Err != nil {
		t.Errorf("final err = %v, want nil", final.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 4 {
		t.Fatalf("update count = %d, want 4 (one per fragment plus terminal)", len(updates))
	}
	if updates[0].Content != "Hel" || updates[0].Status != StatusStreaming {
		t.Errorf("first update = %+v, want streaming %q", updates[0], "Hel")
	}
	if updates[3].Status != StatusCompleted {
		t.Errorf("last update status = %q, want %q", updates[3].Status, StatusCompleted)
	}
}

func TestStreamCompletion_CapturesConversationContext(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"hi"}}]}`,
		`data: {"conversation":{"id":"conv_123","title":"Greetings"},"object":"chat.completion.chunk"}`,
		`data: [DONE]`,
	})
	defer server.Close()

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.ConversationID != "conv_123" {
		t.Errorf("conversation id = %q, want %q", final.ConversationID, "conv_123")
	}
	if final.ConversationTitle != "Greetings" {
		t.Errorf("conversation title = %q, want %q", final.ConversationTitle, "Greetings")
	}
	if final.Content != "hi" {
		t.Errorf("content = %q, want %q", final.Content, "hi")
	}
}

func TestStreamCompletion_CancelMarksAndDropsLateFragments(t *testing.T) {
	firstSent := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Par"}}]}` + "\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		close(firstSent)
		<-release
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"tial"}}]}` + "\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()
	defer close(release)

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	<-firstSent
	waitForContent(t, session, "Par")

	session.Cancel()

	final := session.Wait()
	if final.Status != StatusCancelled {
		t.Errorf("final status = %q, want %q", final.Status, StatusCancelled)
	}
	if final.Content != "Par [Response cancelled]" {
		t.Errorf("final content = %q, want %q", final.Content, "Par [Response cancelled]")
	}

	// A fragment arriving after Cancel must not change the message.
	session.append("tial")
	if got := session.Message().Content; strings.Contains(got, "tial") {
		t.Errorf("content after late fragment = %q, late fragment not dropped", got)
	}
}

func TestStreamCompletion_CancelBeforeAnyFragment(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		close(started)
		<-release
	}))
	defer server.Close()
	defer close(release)

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	<-started
	session.Cancel()

	final := session.Wait()
	if final.Status != StatusCancelled {
		t.Errorf("final status = %q, want %q", final.Status, StatusCancelled)
	}
	if final.Content != cancelledMarker {
		t.Errorf("final content = %q, want bare marker %q", final.Content, cancelledMarker)
	}
}

func TestStreamCompletion_TransportFaultMarksInterrupted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"Par"}}]}` + "\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		// Drop the connection without sending [DONE].
		if hijacker, ok := w.(http.Hijacker); ok {
			conn, _, err := hijacker.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer server.Close()

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.Status != StatusInterrupted {
		t.Errorf("final status = %q, want %q", final.Status, StatusInterrupted)
	}
	if final.Content != "Par [Response interrupted]" {
		t.Errorf("final content = %q, want %q", final.Content, "Par [Response interrupted]")
	}
	if final.Err == nil {
		t.Error("final err = nil, want transport error")
	}
}

func TestStreamCompletion_ServerErrorEventMarksInterrupted(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Par"}}]}`,
		`data: {"error":{"type":"upstream_error","message":"the model stream was interrupted"}}`,
		`data: {"conversation":{"id":"conv_456"},"object":"chat.completion.chunk"}`,
		`data: [DONE]`,
	})
	defer server.Close()

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.Status != StatusInterrupted {
		t.Errorf("final status = %q, want %q", final.Status, StatusInterrupted)
	}
	if final.Content != "Par [Response interrupted]" {
		t.Errorf("final content = %q, want %q", final.Content, "Par [Response interrupted]")
	}
	if final.Err == nil || !strings.Contains(final.Err.Error(), "upstream_error") {
		t.Errorf("final err = %v, want the server-reported fault", final.Err)
	}
	if final.ConversationID != "conv_456" {
		t.Errorf("conversation id = %q, want %q", final.ConversationID, "conv_456")
	}
}

func TestStreamCompletion_PersistenceErrorEventKeepsCompletion(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"error":{"type":"persistence_error","message":"assistant message was not saved"}}`,
		`data: [DONE]`,
	})
	defer server.Close()

	session, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.Status != StatusCompleted {
		t.Errorf("final status = %q, want %q", final.Status, StatusCompleted)
	}
	if final.Content != "Hello" {
		t.Errorf("final content = %q, want %q", final.Content, "Hello")
	}
	if final.Err == nil || !strings.Contains(final.Err.Error(), "persistence_error") {
		t.Errorf("final err = %v, want the persistence failure reported", final.Err)
	}
}

func TestStreamCompletion_CoalescesUpdates(t *testing.T) {
	lines := make([]string, 0, 21)
	for i := 0; i < 20; i++ {
		lines = append(lines, `data: {"choices":[{"delta":{"content":"x"}}]}`)
	}
	lines = append(lines, `data: [DONE]`)
	server := sseServer(t, lines)
	defer server.Close()

	client := New(server.URL, WithCoalesceWindow(50*time.Millisecond))

	var mu sync.Mutex
	var updates []Snapshot
	session, err := client.StreamCompletion(context.Background(), testCompletionRequest(), func(s Snapshot) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	final := session.Wait()
	if final.Content != strings.Repeat("x", 20) {
		t.Errorf("final content length = %d, want 20", len(final.Content))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) >= 20 {
		t.Errorf("update count = %d, want far fewer than fragment count", len(updates))
	}
	if len(updates) == 0 {
		t.Fatal("no updates delivered")
	}
	if last := updates[len(updates)-1]; last.Status != StatusCompleted {
		t.Errorf("last update status = %q, want %q", last.Status, StatusCompleted)
	}
}

func TestStreamCompletion_RejectionReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL).StreamCompletion(context.Background(), testCompletionRequest(), nil)
	if err == nil {
		t.Fatal("StreamCompletion() error = nil, want rejection")
	}
	if !strings.Contains(err.Error(), "invalid_request") {
		t.Errorf("error = %v, want body detail included", err)
	}
}

func waitForContent(t *testing.T, session *Session, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if session.Message().Content == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("content = %q, want %q before deadline", session.Message().Content, want)
}

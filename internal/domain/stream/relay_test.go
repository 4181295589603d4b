package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedSource yields a fixed fragment sequence, then finalErr (io.EOF when
// nil). When block is non-nil, Recv blocks on it after the fragments run out.
type scriptedSource struct {
	fragments []Fragment
	finalErr  error
	block     chan struct{}
	idx       int
	closed    bool
}

func (s *scriptedSource) Recv() (Fragment, error) {
	if s.idx < len(s.fragments) {
		f := s.fragments[s.idx]
		s.idx++
		return f, nil
	}
	if s.block != nil {
		<-s.block
	}
	if s.finalErr != nil {
		return Fragment{}, s.finalErr
	}
	return Fragment{}, io.EOF
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type persistRecorder struct {
	calls   int
	result  Result
	ctxErr  error
	failErr error
}

func (p *persistRecorder) persist(ctx context.Context, result Result) error {
	p.calls++
	p.result = result
	p.ctxErr = ctx.Err()
	return p.failErr
}

func newTestRelay(timeout time.Duration) *Relay {
	return NewRelay(timeout, zerolog.Nop())
}

func TestRelay_CompletedPersistsConcatenation(t *testing.T) {
	src := &scriptedSource{
		fragments: []Fragment{{Text: "Hel"}, {Text: "lo "}, {Text: "world"}},
	}
	rec := &persistRecorder{}

	var forwarded []string
	forward := func(f Fragment) error {
		forwarded = append(forwarded, f.Text)
		return nil
	}

	result, err := newTestRelay(0).Run(context.Background(), src, forward, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("state = %s, want %s", result.State, StateCompleted)
	}
	if result.Content != "Hello world" {
		t.Errorf("content = %q, want %q", result.Content, "Hello world")
	}
	if result.FragmentCount != 3 {
		t.Errorf("fragment count = %d, want 3", result.FragmentCount)
	}
	if got := strings.Join(forwarded, ""); got != "Hello world" {
		t.Errorf("forwarded = %q, want %q", got, "Hello world")
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
	if rec.result.Content != "Hello world" {
		t.Errorf("persisted content = %q, want %q", rec.result.Content, "Hello world")
	}
	if !src.closed {
		t.Error("source not closed")
	}
}

func TestRelay_ZeroFragmentStreamPersistsEmptyMessage(t *testing.T) {
	src := &scriptedSource{}
	rec := &persistRecorder{}

	result, err := newTestRelay(0).Run(context.Background(), src, nil, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("state = %s, want %s", result.State, StateCompleted)
	}
	if result.Content != "" {
		t.Errorf("content = %q, want empty", result.Content)
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
}

func TestRelay_UpstreamFaultAppendsInterruptedMarker(t *testing.T) {
	fault := errors.New("connection reset")
	src := &scriptedSource{
		fragments: []Fragment{{Text: "partial"}, {Text: " text"}},
		finalErr:  fault,
	}
	rec := &persistRecorder{}

	result, err := newTestRelay(0).Run(context.Background(), src, nil, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateErrored {
		t.Errorf("state = %s, want %s", result.State, StateErrored)
	}
	want := "partial text " + InterruptedMarker
	if result.Content != want {
		t.Errorf("content = %q, want %q", result.Content, want)
	}
	if !errors.Is(result.Err, fault) {
		t.Errorf("result err = %v, want %v", result.Err, fault)
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
}

func TestRelay_UpstreamFaultBeforeFirstFragment(t *testing.T) {
	src := &scriptedSource{finalErr: errors.New("boom")}
	rec := &persistRecorder{}

	result, err := newTestRelay(0).Run(context.Background(), src, nil, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Content != InterruptedMarker {
		t.Errorf("content = %q, want bare marker %q", result.Content, InterruptedMarker)
	}
}

func TestRelay_CancelMidStreamAppendsCancelledMarker(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	src := &scriptedSource{
		fragments: []Fragment{{Text: "Once upon"}, {Text: " a time"}},
		block:     block,
	}
	rec := &persistRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := 0
	forward := func(f Fragment) error {
		seen++
		if seen == 2 {
			cancel()
		}
		return nil
	}

	result, err := newTestRelay(0).Run(ctx, src, forward, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCancelled {
		t.Errorf("state = %s, want %s", result.State, StateCancelled)
	}
	want := "Once upon a time " + CancelledMarker
	if result.Content != want {
		t.Errorf("content = %q, want %q", result.Content, want)
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
	if rec.ctxErr != nil {
		t.Errorf("persist context already done: %v", rec.ctxErr)
	}
}

func TestRelay_CancelBeforeFirstFragment(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	src := &scriptedSource{block: block}
	rec := &persistRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestRelay(0).Run(ctx, src, nil, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCancelled {
		t.Errorf("state = %s, want %s", result.State, StateCancelled)
	}
	if result.Content != CancelledMarker {
		t.Errorf("content = %q, want bare marker %q", result.Content, CancelledMarker)
	}
	if result.FragmentCount != 0 {
		t.Errorf("fragment count = %d, want 0", result.FragmentCount)
	}
}

func TestRelay_SessionTimeoutIsInterruption(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	src := &scriptedSource{
		fragments: []Fragment{{Text: "slow"}},
		block:     block,
	}
	rec := &persistRecorder{}

	result, err := newTestRelay(20 * time.Millisecond).Run(context.Background(), src, nil, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateErrored {
		t.Errorf("state = %s, want %s", result.State, StateErrored)
	}
	want := "slow " + InterruptedMarker
	if result.Content != want {
		t.Errorf("content = %q, want %q", result.Content, want)
	}
	if !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("result err = %v, want deadline exceeded", result.Err)
	}
}

func TestRelay_CompletionWinsOverLateCancellation(t *testing.T) {
	// The full stream including its clean end is available before the
	// cancellation fires, so the session must complete without a marker.
	src := &scriptedSource{
		fragments: []Fragment{{Text: "almost"}, {Text: " done"}},
	}
	rec := &persistRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	forward := func(f Fragment) error {
		if f.Text == "almost" {
			// Give the producer time to buffer the rest and close.
			time.Sleep(20 * time.Millisecond)
			cancel()
		}
		return nil
	}

	result, err := newTestRelay(0).Run(ctx, src, forward, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("state = %s, want %s", result.State, StateCompleted)
	}
	if result.Content != "almost done" {
		t.Errorf("content = %q, want %q", result.Content, "almost done")
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
}

func TestRelay_ForwardFailureCancelsSession(t *testing.T) {
	src := &scriptedSource{
		fragments: []Fragment{{Text: "a"}, {Text: "b"}},
	}
	rec := &persistRecorder{}

	clientGone := errors.New("client write failed")
	forward := func(f Fragment) error {
		return clientGone
	}

	result, err := newTestRelay(0).Run(context.Background(), src, forward, rec.persist)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCancelled {
		t.Errorf("state = %s, want %s", result.State, StateCancelled)
	}
	want := "a " + CancelledMarker
	if result.Content != want {
		t.Errorf("content = %q, want %q", result.Content, want)
	}
	if !errors.Is(result.Err, clientGone) {
		t.Errorf("result err = %v, want %v", result.Err, clientGone)
	}
}

func TestRelay_PersistFailureIsSurfaced(t *testing.T) {
	src := &scriptedSource{
		fragments: []Fragment{{Text: "saved nowhere"}},
	}
	rec := &persistRecorder{failErr: errors.New("db down")}

	result, err := newTestRelay(0).Run(context.Background(), src, nil, rec.persist)

	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("Run() error = %v, want ErrPersistFailed", err)
	}
	if result.State != StateCompleted {
		t.Errorf("state = %s, want %s", result.State, StateCompleted)
	}
	if rec.calls != 1 {
		t.Errorf("persist calls = %d, want 1", rec.calls)
	}
}

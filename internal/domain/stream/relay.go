// Package stream implements the completion relay: it pumps fragments from an
// upstream source, forwards them to the client as they arrive, accumulates
// the full text, and persists the result exactly once at the terminal
// transition.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	channelBufferSize = 100
	errorBufferSize   = 10

	// DefaultSessionTimeout bounds a single relay session.
	DefaultSessionTimeout = 120 * time.Second

	// InterruptedMarker is appended to the accumulated text when the
	// upstream stream fails or the session times out.
	InterruptedMarker = "[Response interrupted]"

	// CancelledMarker is appended when the client cancels mid-stream.
	CancelledMarker = "[Response cancelled]"
)

// State is the relay session state. A session is Open while fragments flow
// and ends in exactly one of the terminal states.
type State string

const (
	StateOpen      State = "open"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateCancelled State = "cancelled"
)

// Fragment is a single text delta received from the upstream provider. Raw
// optionally carries the original wire event for passthrough to the client;
// only Text participates in accumulation.
type Fragment struct {
	Text string
	Raw  string
}

// Source is a pull-based fragment sequence. Recv returns io.EOF on clean
// end-of-stream and any other error for a mid-stream fault. A Source is not
// restartable.
type Source interface {
	Recv() (Fragment, error)
	Close() error
}

// Result describes how a relay session ended.
type Result struct {
	State         State
	Content       string
	FragmentCount int
	Err           error
}

// ForwardFunc delivers a fragment to the client. A non-nil return aborts
// the session as a cancellation.
type ForwardFunc func(fragment Fragment) error

// PersistFunc writes the terminal result. It is invoked exactly once per
// session, with a context that survives client cancellation.
type PersistFunc func(ctx context.Context, result Result) error

// ErrPersistFailed reports that the session finished but the assistant
// message could not be saved.
var ErrPersistFailed = errors.New("assistant message not persisted")

// Relay runs completion sessions against a Source.
type Relay struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRelay constructs a Relay with the given session timeout.
func NewRelay(timeout time.Duration, logger zerolog.Logger) *Relay {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Relay{timeout: timeout, logger: logger}
}

// Run consumes src until a terminal transition, forwarding each fragment as
// it arrives and accumulating the full text. The terminal persist happens on
// every path once the source has been opened: clean EOF persists the
// concatenation (empty for a zero-fragment stream), upstream faults and
// timeouts persist with InterruptedMarker, client cancellation persists with
// CancelledMarker. A clean end observed before the cancellation signal is
// processed wins over the cancellation.
//
// Run returns a non-nil error only when the persist itself failed; the
// terminal state and upstream cause live in the Result.
func (r *Relay) Run(ctx context.Context, src Source, forward ForwardFunc, persist PersistFunc) (Result, error) {
	if forward == nil {
		forward = func(Fragment) error { return nil }
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer src.Close()

	dataChan := make(chan Fragment, channelBufferSize)
	errChan := make(chan error, errorBufferSize)

	go func() {
		defer close(dataChan)
		for {
			fragment, err := src.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				select {
				case errChan <- err:
				default:
				}
				return
			}
			select {
			case dataChan <- fragment:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var accumulated strings.Builder
	fragmentCount := 0

	appendFragment := func(f Fragment) error {
		accumulated.WriteString(f.Text)
		fragmentCount++
		return forward(f)
	}

	finish := func(state State, cause error) (Result, error) {
		content := accumulated.String()
		switch state {
		case StateErrored:
			content = withMarker(content, InterruptedMarker)
		case StateCancelled:
			content = withMarker(content, CancelledMarker)
		}

		result := Result{
			State:         state,
			Content:       content,
			FragmentCount: fragmentCount,
			Err:           cause,
		}

		r.logger.Debug().
			Str("state", string(state)).
			Int("fragments", fragmentCount).
			Msg("relay session finished")

		// The persist must survive the cancellation that ended the session.
		if err := persist(context.WithoutCancel(ctx), result); err != nil {
			r.logger.Error().Err(err).
				Str("state", string(state)).
				Msg("assistant message not persisted")
			return result, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}

		return result, nil
	}

	for {
		select {
		case fragment, ok := <-dataChan:
			if !ok {
				// The producer closes dataChan on faults too; a buffered
				// error outranks the close.
				select {
				case err := <-errChan:
					return finish(StateErrored, err)
				default:
				}
				return finish(StateCompleted, nil)
			}
			if err := appendFragment(fragment); err != nil {
				return finish(StateCancelled, err)
			}
		case err := <-errChan:
			return finish(StateErrored, err)
		case <-runCtx.Done():
			// Drain fragments that arrived before the signal; a clean end
			// found among them wins over the cancellation.
		drain:
			for {
				select {
				case fragment, ok := <-dataChan:
					if !ok {
						select {
						case err := <-errChan:
							return finish(StateErrored, err)
						default:
						}
						return finish(StateCompleted, nil)
					}
					if err := appendFragment(fragment); err != nil {
						return finish(StateCancelled, err)
					}
				default:
					break drain
				}
			}

			cause := context.Cause(runCtx)
			if errors.Is(cause, context.DeadlineExceeded) {
				return finish(StateErrored, cause)
			}
			return finish(StateCancelled, cause)
		}
	}
}

func withMarker(content, marker string) string {
	if content == "" {
		return marker
	}
	return content + " " + marker
}

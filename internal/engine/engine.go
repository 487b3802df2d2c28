// Package engine orchestrates generation attempts across an ordered
// model list and a rotating credential pool. Model order is the major
// axis: a model is only abandoned when its options are spent or it
// fails in a model-scoped way.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/org/bookforge/internal/provider"
)

const overloadBackoff = 1500 * time.Millisecond

// Attempt describes one provider call for observers. KeyHint is the
// loggable credential tail; the full credential is never exposed.
type Attempt struct {
	Operation string
	Model     string
	KeyHint   string
	Outcome   string // "success" or a provider error kind
	Duration  time.Duration
	Detail    string
}

// AttemptObserver receives every attempt, success or failure. Used for
// the generation log and metrics. Must not block.
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, a Attempt)
}

// Operation is one unit of work tried against a specific model and
// credential. It must return provider-tagged errors for failures that
// should influence rotation.
type Operation[T any] func(ctx context.Context, model, credential string) (T, error)

// Engine holds the rotation policy. Construct once per model list and
// share; Run is safe for concurrent use.
type Engine struct {
	models      []string
	credentials CredentialSource
	observer    AttemptObserver
	sleep       func(ctx context.Context, d time.Duration) error
	log         zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers the attempt observer.
func WithObserver(o AttemptObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithSleep injects the backoff sleeper. Tests replace it to avoid
// real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New creates an Engine over the given model preference order.
func New(models []string, credentials CredentialSource, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		models:      models,
		credentials: credentials,
		sleep:       sleepCtx,
		log:         log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Models returns the preference order the engine walks.
func (e *Engine) Models() []string { return e.models }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes op against the engine's grid until one attempt succeeds
// or every pair fails. Each (model, credential) pair is tried at most
// once per run. An overloaded provider gets a short backoff before the
// next attempt. The credential pool is snapshotted at the start, so
// concurrent settings changes affect only later runs.
func Run[T any](ctx context.Context, e *Engine, operation string, op Operation[T]) (T, error) {
	var zero T

	credentials, err := e.credentials.Credentials(ctx)
	if err != nil {
		return zero, err
	}
	if len(credentials) == 0 || len(e.models) == 0 {
		return zero, ErrNoCredentials
	}

	cur := cursor{}
	attempts := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		model := e.models[cur.model]
		credential := credentials[cur.credential]
		hint := KeyHint(credential)

		start := time.Now()
		result, err := op(ctx, model, credential)
		elapsed := time.Since(start)
		attempts++

		if err == nil {
			e.observe(ctx, Attempt{
				Operation: operation, Model: model, KeyHint: hint,
				Outcome: "success", Duration: elapsed,
			})
			e.log.Debug().
				Str("operation", operation).
				Str("model", model).
				Str("key", hint).
				Int("attempt", attempts).
				Msg("generation succeeded")
			return result, nil
		}

		kind := provider.KindOf(err)
		lastErr = err
		e.observe(ctx, Attempt{
			Operation: operation, Model: model, KeyHint: hint,
			Outcome: kind.String(), Duration: elapsed, Detail: err.Error(),
		})
		e.log.Warn().
			Str("operation", operation).
			Str("model", model).
			Str("key", hint).
			Str("kind", kind.String()).
			Int("attempt", attempts).
			Err(err).
			Msg("generation attempt failed")

		next, ok := cur.advance(decide(kind), len(e.models), len(credentials))
		if !ok {
			return zero, &ExhaustedError{Operation: operation, Attempts: attempts, Last: lastErr}
		}

		if kind == provider.KindOverloaded {
			if err := e.sleep(ctx, overloadBackoff); err != nil {
				return zero, err
			}
		}
		cur = next
	}
}

func (e *Engine) observe(ctx context.Context, a Attempt) {
	if e.observer != nil {
		e.observer.ObserveAttempt(ctx, a)
	}
}

package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/upstream"
)

// Turn outcomes reported to a TurnRecorder.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
	OutcomeRejected  = "rejected"
)

// ConfigSource supplies the current global configuration.
type ConfigSource interface {
	Get() config.Config
}

// TurnRecorder observes finished turns.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordTurn(context.Context, string, time.Duration) {}

// Relay runs chat turns against one store and one upstream client. It holds
// no per-connection state and may be shared by all connections.
type Relay struct {
	store    session.Store
	client   upstream.Client
	configs  ConfigSource
	recorder TurnRecorder
	log      *slog.Logger
}

type RelayOption func(*Relay)

func WithLogger(l *slog.Logger) RelayOption {
	return func(r *Relay) { r.log = l }
}

func WithRecorder(rec TurnRecorder) RelayOption {
	return func(r *Relay) { r.recorder = rec }
}

func NewRelay(store session.Store, client upstream.Client, configs ConfigSource, opts ...RelayOption) *Relay {
	r := &Relay{
		store:    store,
		client:   client,
		configs:  configs,
		recorder: nopRecorder{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// emitError marks a failure to reach the caller, as opposed to an upstream
// failure.
type emitError struct {
	err error
}

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// HandleTurn processes one request and reports progress through emit.
//
// Invalid requests are answered with an error event and leave the session
// untouched. Otherwise the user message is committed before the provider is
// called, and the turn ends with exactly one more committed message: the
// assistant answer on success or a system message describing the failure.
// If ctx is cancelled mid-stream the turn is abandoned and nothing further is
// committed.
//
// The returned error is non-nil only when emit failed or ctx was cancelled,
// meaning the caller is gone.
func (r *Relay) HandleTurn(ctx context.Context, req Request, emit EmitFunc) error {
	log := r.log.With("sessionId", req.SessionID)
	start := time.Now()

	if req.SessionID == "" || req.Message == "" {
		r.recorder.RecordTurn(ctx, OutcomeRejected, time.Since(start))
		return emit(ctx, Event{Type: EventError, Content: MsgMissingParams})
	}
	sess, ok := r.store.Get(req.SessionID)
	if !ok {
		r.recorder.RecordTurn(ctx, OutcomeRejected, time.Since(start))
		return emit(ctx, Event{Type: EventError, Content: MsgSessionNotFound})
	}
	callLayer, err := config.ParseOverrides(req.Config)
	if err != nil {
		r.recorder.RecordTurn(ctx, OutcomeRejected, time.Since(start))
		return emit(ctx, Event{Type: EventError, Content: MsgInvalidConfig + err.Error()})
	}
	sessionLayer, err := config.ParseOverrides(sess.Config)
	if err != nil {
		log.Warn("ignoring invalid session config", "error", err)
		sessionLayer = config.Overrides{}
	}

	if err := r.store.AppendMessage(ctx, req.SessionID, session.NewMessage(session.RoleUser, req.Message)); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			r.recorder.RecordTurn(ctx, OutcomeRejected, time.Since(start))
			return emit(ctx, Event{Type: EventError, Content: MsgSessionNotFound})
		}
		return err
	}
	if err := emit(ctx, Event{Type: EventUserMessageSaved, Content: req.Message}); err != nil {
		return err
	}

	// Re-read so the context includes everything up to the new message.
	if fresh, ok := r.store.Get(req.SessionID); ok {
		sess = fresh
	}
	eff := config.Resolve(r.configs.Get(), sessionLayer, callLayer)
	msgs := BuildContext(sess, req.Message, eff)

	log.Info("turn started",
		"model", eff.Model,
		"promptLen", len(req.Message),
		"contextMessages", len(msgs))

	full, err := r.stream(ctx, eff, msgs, emit)

	// The turn has resolved; commits below must not depend on the caller.
	commitCtx := context.WithoutCancel(ctx)

	var ee *emitError
	switch {
	case errors.As(err, &ee), err != nil && ctx.Err() != nil:
		log.Info("turn abandoned, client disconnected", "error", err)
		r.recorder.RecordTurn(commitCtx, OutcomeAbandoned, time.Since(start))
		if ee != nil {
			return ee.err
		}
		return ctx.Err()

	case err != nil:
		errMsg := MsgUpstreamFailed + err.Error()
		log.Warn("turn failed", "error", err)
		emitErr := emit(ctx, Event{Type: EventError, Content: errMsg})
		r.commit(commitCtx, log, req.SessionID, session.NewMessage(session.RoleSystem, FailurePrefix+errMsg))
		r.recorder.RecordTurn(commitCtx, OutcomeFailed, time.Since(start))
		return emitErr
	}

	r.commit(commitCtx, log, req.SessionID, session.NewMessage(session.RoleAssistant, full))
	r.recorder.RecordTurn(commitCtx, OutcomeCompleted, time.Since(start))
	log.Info("turn completed", "contentLen", len(full), "duration", time.Since(start))
	return emit(ctx, Event{Type: EventDone, Content: full})
}

// stream opens the provider call and forwards every fragment to emit. It
// returns the full text on natural completion.
func (r *Relay) stream(ctx context.Context, eff config.Effective, msgs []upstream.Message, emit EmitFunc) (string, error) {
	s, err := r.client.Open(ctx, upstream.Request{
		BaseURL:     eff.BaseURL,
		APIKey:      eff.APIKey,
		Model:       eff.Model,
		MaxTokens:   eff.MaxTokens,
		Temperature: eff.Temperature,
		Messages:    msgs,
	})
	if err != nil {
		return "", err
	}

	demux := NewDemux()
	for frag, err := range demux.Fragments(ctx, s) {
		if err != nil {
			return "", err
		}
		if err := emit(ctx, Event{Type: EventStream, Content: frag}); err != nil {
			return "", &emitError{err: err}
		}
	}
	return demux.Full(), nil
}

// commit appends msg. Persistence failures are logged by the store; a
// missing session means it was deleted mid-turn.
func (r *Relay) commit(ctx context.Context, log *slog.Logger, sessionID string, msg session.Message) {
	if err := r.store.AppendMessage(ctx, sessionID, msg); err != nil {
		log.Warn("failed to commit turn", "role", msg.Role, "error", err)
	}
}

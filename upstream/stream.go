package upstream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sseStream reads chat completion chunks from a server-sent events body.
type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc
	span   trace.Span

	idle      time.Duration
	timer     *time.Timer
	idleFired atomic.Bool

	event     string
	chunks    int
	done      bool
	err       error
	closeOnce sync.Once
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc, span trace.Span, idle time.Duration) *sseStream {
	s := &sseStream{
		body:   body,
		reader: bufio.NewReader(body),
		cancel: cancel,
		span:   span,
		idle:   idle,
	}
	s.timer = time.AfterFunc(idle, func() {
		s.idleFired.Store(true)
		cancel()
	})
	s.timer.Stop()
	return s
}

func (s *sseStream) Next(ctx context.Context) (Chunk, error) {
	if s.done {
		return Chunk{}, s.err
	}
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	for {
		s.timer.Reset(s.idle)
		line, readErr := s.reader.ReadString('\n')
		s.timer.Stop()

		field, value, ok := parseLine(line)
		switch {
		case !ok:
			if strings.TrimSpace(line) == "" {
				// Blank line ends the current event block.
				s.event = ""
			}
		case field == fieldEvent:
			s.event = value
		case field == fieldData && s.event == eventError:
			return Chunk{}, s.finish(&StreamError{Err: errorEventPayload(value)})
		case field == fieldData && value == doneMarker:
			return Chunk{}, s.finish(io.EOF)
		case field == fieldData:
			chunk, err := decodeChunk(value)
			var perr *ProviderError
			switch {
			case errors.As(err, &perr):
				return Chunk{}, s.finish(&StreamError{Err: perr})
			case err != nil:
				slog.Debug("skipping undecodable stream line", "error", err)
			default:
				s.chunks++
				return chunk, nil
			}
		}

		if readErr != nil {
			if s.event == eventError && errors.Is(readErr, io.EOF) {
				return Chunk{}, s.finish(&StreamError{Err: errorEventPayload("")})
			}
			return Chunk{}, s.finish(s.classify(ctx, readErr))
		}
	}
}

func (s *sseStream) classify(ctx context.Context, err error) error {
	switch {
	case s.idleFired.Load():
		return &StreamError{Err: ErrIdleTimeout}
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, io.EOF):
		// Provider closed the body without [DONE].
		return io.EOF
	default:
		return &StreamError{Err: err}
	}
}

func (s *sseStream) finish(err error) error {
	s.done = true
	s.err = err
	s.span.SetAttributes(attribute.Int("upstream.chunks", s.chunks))
	if !errors.Is(err, io.EOF) {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.Close()
	return err
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.timer.Stop()
		s.cancel()
		err = s.body.Close()
		s.span.End()
	})
	return err
}

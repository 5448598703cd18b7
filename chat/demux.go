package chat

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/deepchat/server/upstream"
)

const (
	ReasoningHeader = "【深度思考】\n"
	AnswerSeparator = "\n\n---\n\n"
)

var ErrDemuxConsumed = errors.New("demux stream already consumed")

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Demux merges the reasoning and answer channels of a provider stream into
// one display text. The reasoning header is written once before the first
// reasoning text, and the separator once before the first answer text, only
// when reasoning was seen.
//
// A Demux serves one turn and is not safe for concurrent use.
type Demux struct {
	phase            Phase
	reasoningActive  bool
	separatorEmitted bool
	full             strings.Builder
	consumed         bool
}

func NewDemux() *Demux {
	return &Demux{}
}

func (d *Demux) Phase() Phase {
	return d.phase
}

// Full returns everything emitted so far, in emission order.
func (d *Demux) Full() string {
	return d.full.String()
}

// Feed classifies one chunk and returns the fragment to display, which is
// empty for chunks without text.
func (d *Demux) Feed(c upstream.Chunk) string {
	if d.phase == PhaseIdle {
		d.phase = PhaseStreaming
	}

	var b strings.Builder
	if c.Reasoning != "" {
		if !d.reasoningActive {
			b.WriteString(ReasoningHeader)
			d.reasoningActive = true
		}
		b.WriteString(c.Reasoning)
	}
	if c.Content != "" {
		if d.reasoningActive && !d.separatorEmitted {
			b.WriteString(AnswerSeparator)
			d.separatorEmitted = true
		}
		b.WriteString(c.Content)
	}

	frag := b.String()
	d.full.WriteString(frag)
	return frag
}

// Fragments pulls chunks from s and yields display fragments as they
// arrive. The sequence ends when the stream completes; an upstream error is
// yielded once with an empty fragment and ends it. s is closed when the
// sequence ends, including when the consumer stops early. The sequence can
// be ranged over once; later attempts yield ErrDemuxConsumed.
func (d *Demux) Fragments(ctx context.Context, s upstream.Stream) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if d.consumed {
			yield("", ErrDemuxConsumed)
			return
		}
		d.consumed = true
		defer s.Close()

		d.phase = PhaseStreaming
		for {
			c, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				d.phase = PhaseCompleted
				return
			}
			if err != nil {
				d.phase = PhaseFailed
				yield("", err)
				return
			}
			if frag := d.Feed(c); frag != "" {
				if !yield(frag, nil) {
					return
				}
			}
		}
	}
}

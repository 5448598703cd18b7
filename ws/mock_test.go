package ws

import (
	"context"
	"io"
	"sync"

	"github.com/deepchat/server/upstream"
)

// scriptedClient replays the same chunks for every Open call, optionally
// ending with an error instead of completion.
type scriptedClient struct {
	chunks []upstream.Chunk
	err    error

	mu    sync.Mutex
	opens int
}

func (c *scriptedClient) Open(ctx context.Context, req upstream.Request) (upstream.Stream, error) {
	c.mu.Lock()
	c.opens++
	c.mu.Unlock()
	return &scriptedStream{chunks: c.chunks, err: c.err}, nil
}

type scriptedStream struct {
	chunks []upstream.Chunk
	err    error
	pos    int
}

func (s *scriptedStream) Next(ctx context.Context) (upstream.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return upstream.Chunk{}, err
	}
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return upstream.Chunk{}, s.err
	}
	return upstream.Chunk{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

// hangingClient sends one chunk and then blocks until the turn is
// cancelled. released is closed once the stream has been closed.
type hangingClient struct {
	released chan struct{}
	once     sync.Once
}

func newHangingClient() *hangingClient {
	return &hangingClient{released: make(chan struct{})}
}

func (c *hangingClient) Open(ctx context.Context, req upstream.Request) (upstream.Stream, error) {
	return &hangingStream{client: c}, nil
}

type hangingStream struct {
	client *hangingClient
	sent   bool
}

func (s *hangingStream) Next(ctx context.Context) (upstream.Chunk, error) {
	if !s.sent {
		s.sent = true
		return upstream.Chunk{Content: "F"}, nil
	}
	<-ctx.Done()
	return upstream.Chunk{}, ctx.Err()
}

func (s *hangingStream) Close() error {
	s.client.once.Do(func() { close(s.client.released) })
	return nil
}

// gatedClient sends "a", waits for gate to close, then sends "b" and
// completes.
type gatedClient struct {
	gate chan struct{}
}

func (c *gatedClient) Open(ctx context.Context, req upstream.Request) (upstream.Stream, error) {
	return &gatedStream{gate: c.gate}, nil
}

type gatedStream struct {
	gate chan struct{}
	pos  int
}

func (s *gatedStream) Next(ctx context.Context) (upstream.Chunk, error) {
	s.pos++
	switch s.pos {
	case 1:
		return upstream.Chunk{Content: "a"}, nil
	case 2:
		select {
		case <-s.gate:
		case <-ctx.Done():
			return upstream.Chunk{}, ctx.Err()
		}
		return upstream.Chunk{Content: "b"}, nil
	}
	return upstream.Chunk{}, io.EOF
}

func (s *gatedStream) Close() error { return nil }

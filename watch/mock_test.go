package watch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepchat/server/session"
	"github.com/sourcegraph/jsonrpc2"
)

type notification struct {
	method string
	params any
}

type fakeNotifier struct {
	ch   chan notification
	fail bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan notification, 16)}
}

func (n *fakeNotifier) Notify(_ context.Context, method string, params any, _ ...jsonrpc2.CallOption) error {
	if n.fail {
		return errors.New("connection closed")
	}
	n.ch <- notification{method: method, params: params}
	return nil
}

func (n *fakeNotifier) wait(t *testing.T) notification {
	t.Helper()
	select {
	case got := <-n.ch:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notification{}
	}
}

func (n *fakeNotifier) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-n.ch:
		t.Fatalf("unexpected notification %s", got.method)
	case <-time.After(d):
	}
}

func newTestStore(t *testing.T) *session.FileStore {
	t.Helper()
	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

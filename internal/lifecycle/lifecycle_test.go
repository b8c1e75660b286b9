package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"venueexec/internal/connector"
)

type fakeConn struct {
	connector.Connector
	startCalls int32
	stopCalls  int32
	startErr   error
}

func (f *fakeConn) Start(ctx context.Context, sink connector.UpdateSink) error {
	atomic.AddInt32(&f.startCalls, 1)
	return f.startErr
}

func (f *fakeConn) Stop(ctx context.Context) error {
	atomic.AddInt32(&f.stopCalls, 1)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	var taskRuns int32
	task := func(ctx context.Context) error {
		atomic.AddInt32(&taskRuns, 1)
		<-ctx.Done()
		return ctx.Err()
	}

	ctrl := New(conn, nil, testLogger(), task)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if atomic.LoadInt32(&conn.startCalls) != 1 {
		t.Errorf("connector Start called %d times, want 1", conn.startCalls)
	}

	time.Sleep(20 * time.Millisecond)
	ctrl.Stop(context.Background())
	ctrl.Stop(context.Background())

	if atomic.LoadInt32(&conn.stopCalls) != 1 {
		t.Errorf("connector Stop called %d times, want 1", conn.stopCalls)
	}
	if atomic.LoadInt32(&taskRuns) != 1 {
		t.Errorf("task ran %d times, want 1", taskRuns)
	}
}

func TestStartPropagatesConnectorError(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{startErr: errors.New("boom")}
	ctrl := New(conn, nil, testLogger())
	if err := ctrl.Start(context.Background()); err == nil {
		t.Fatal("expected Start to propagate connector error")
	}
}

package submitlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLock_SecondRunRejectedWhileFirstOutstanding(t *testing.T) {
	t.Parallel()

	var l Lock
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- l.Run(context.Background(), func(context.Context) error {
			calls.Add(1)
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if !l.Locked() {
		t.Fatalf("Locked()=false while action outstanding")
	}
	err := l.Run(context.Background(), func(context.Context) error {
		calls.Add(1)
		return nil
	})
	if !errors.Is(err, ErrInProgress) {
		t.Fatalf("second Run err=%v, want ErrInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run err=%v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("action calls=%d, want 1", calls.Load())
	}
	if l.Locked() {
		t.Fatalf("Locked()=true after completion")
	}

	if err := l.Run(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Run after release err=%v", err)
	}
}

func TestLock_ReleasesOnError(t *testing.T) {
	t.Parallel()

	var l Lock
	boom := errors.New("boom")
	if err := l.Run(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Run err=%v, want boom", err)
	}
	if l.Locked() {
		t.Fatalf("Locked()=true after failed action")
	}
	if err := l.Run(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Run after failure err=%v", err)
	}
}

func TestLock_ReleasesOnPanic(t *testing.T) {
	t.Parallel()

	var l Lock
	func() {
		defer func() { _ = recover() }()
		_ = l.Run(context.Background(), func(context.Context) error { panic("boom") })
	}()
	if l.Locked() {
		t.Fatalf("Locked()=true after panicking action")
	}
}

func TestLock_ConcurrentRunsExactlyOneProceeds(t *testing.T) {
	t.Parallel()

	var l Lock
	release := make(chan struct{})
	var calls atomic.Int32
	var rejected atomic.Int32

	const n = 8
	var ready, wg sync.WaitGroup
	ready.Add(n)
	wg.Add(n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ready.Done()
			<-start
			err := l.Run(context.Background(), func(context.Context) error {
				calls.Add(1)
				<-release
				return nil
			})
			if errors.Is(err, ErrInProgress) {
				rejected.Add(1)
			}
		}()
	}
	ready.Wait()
	close(start)

	deadline := time.Now().Add(2 * time.Second)
	for rejected.Load() != n-1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 || rejected.Load() != n-1 {
		t.Fatalf("calls=%d rejected=%d, want 1 and %d", calls.Load(), rejected.Load(), n-1)
	}
}

func TestLock_ActionIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	var l Lock
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx, func(ctx context.Context) error { return ctx.Err() })
	if err != nil {
		t.Fatalf("action saw ctx.Err()=%v, want nil", err)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	t.Parallel()

	var l Lock
	got, err := Do(context.Background(), &l, func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("Do()=%d,%v want 42,nil", got, err)
	}
}

func TestGroup_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	var g Group
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- g.Run(context.Background(), "alice", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := g.Run(context.Background(), "alice", func(context.Context) error { return nil }); !errors.Is(err, ErrInProgress) {
		t.Fatalf("same key err=%v, want ErrInProgress", err)
	}
	got, err := DoKey(context.Background(), &g, "bob", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("other key DoKey()=%q,%v", got, err)
	}
	if !g.Locked("alice") || g.Locked("bob") {
		t.Fatalf("Locked(alice)=%v Locked(bob)=%v", g.Locked("alice"), g.Locked("bob"))
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run err=%v", err)
	}
	if g.Locked("alice") {
		t.Fatalf("key not released")
	}
}

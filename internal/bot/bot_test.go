package bot

import (
	"context"
	"testing"
	"time"
)

func TestExitWhenDoneOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	exited := make(chan struct{})
	go exitWhenDone(ctx, botCtx, func() { close(exited) })
	cancel()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("expected exit after shutdown")
	}
}

func TestExitWhenDoneBotStoppedFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	botCtx, botCancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})
	go func() {
		exitWhenDone(ctx, botCtx, func() { calls++ })
		close(done)
	}()
	botCancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected the watcher to return once the bot stopped")
	}
	if calls != 0 {
		t.Errorf("expected no exit call, got %d", calls)
	}
}

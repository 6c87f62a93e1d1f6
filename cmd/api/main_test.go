package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartBackground_DoneAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := false

	done := startBackground(ctx, func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished = true
	})

	select {
	case <-done:
		t.Fatal("done closed before the task returned")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}
	assert.True(t, finished)
}

func TestClosedChan(t *testing.T) {
	select {
	case <-closedChan():
	default:
		t.Fatal("channel is open")
	}
}

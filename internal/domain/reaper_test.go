package domain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRepo struct {
	SnippetRepository
	calls atomic.Int32
}

func (r *countingRepo) PurgeExpired(ctx context.Context) (int, error) {
	r.calls.Add(1)
	return 1, nil
}

func TestRunReaper(t *testing.T) {
	repo := &countingRepo{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunReaper(ctx, repo, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.calls.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}

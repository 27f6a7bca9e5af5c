package domain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	sync.Mutex
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Lock()
	c.t = c.t.Add(d)
	c.Unlock()
}

func newTestRepo(t *testing.T, opts ...FileOption) (*FileRepository, *fakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]FileOption{WithClock(clock.Now)}, opts...)
	return NewFileRepository(dir, opts...), clock, dir
}

func TestFileRepository_RoundTrip(t *testing.T) {
	repo, _, dir := newTestRepo(t)
	ctx := context.Background()

	written, err := repo.Put(ctx, "abc", "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", written.Content)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "hello", got.Content)
	assert.True(t, got.Expiry.Equal(written.Expiry))

	_, err = os.Stat(filepath.Join(dir, "abc.json"))
	assert.NoError(t, err)
}

func TestFileRepository_ContentStoredVerbatim(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	content := "<script>&</script>\n\ttabs and ünïcode"
	_, err := repo.Put(ctx, "raw", content, 1)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "raw")
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
}

func TestFileRepository_ExpiryComputedFromLifetime(t *testing.T) {
	repo, clock, _ := newTestRepo(t)

	s, err := repo.Put(context.Background(), "abc", "x", 5)
	require.NoError(t, err)
	assert.True(t, s.Expiry.Equal(clock.Now().Add(5*time.Minute)))
}

func TestFileRepository_ExpiredIsEvictedOnRead(t *testing.T) {
	var evicted []string
	repo, clock, dir := newTestRepo(t, WithEvictHook(func(id string) {
		evicted = append(evicted, id)
	}))
	ctx := context.Background()

	for _, lifetime := range []int{0, -3} {
		_, err := repo.Put(ctx, "gone", "bye", lifetime)
		require.NoError(t, err)

		clock.Advance(time.Second)

		_, err = repo.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = os.Stat(filepath.Join(dir, "gone.json"))
		assert.True(t, errors.Is(err, os.ErrNotExist), "record file should be removed")

		_, err = repo.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, []string{"gone", "gone"}, evicted)
}

func TestFileRepository_LiveAtExactExpiry(t *testing.T) {
	repo, clock, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Put(ctx, "edge", "x", 1)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = repo.Get(ctx, "edge")
	assert.NoError(t, err)

	clock.Advance(time.Nanosecond)
	_, err = repo.Get(ctx, "edge")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRepository_Overwrite(t *testing.T) {
	repo, _, dir := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Put(ctx, "X", "first", 10)
	require.NoError(t, err)
	_, err = repo.Put(ctx, "X", "second", 20)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "one record per id, no temp files left behind")
}

func TestFileRepository_DeleteThenRead(t *testing.T) {
	repo, _, dir := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Put(ctx, "X", "data", 10)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "X"))

	_, err = repo.Get(ctx, "X")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRepository_DeleteMissing(t *testing.T) {
	repo, _, dir := newTestRepo(t)

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRepository_GetMissing(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRepository_RejectsInvalidIDs(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", "a.b", "", "/abc"} {
		_, err := repo.Put(ctx, id, "x", 1)
		assert.ErrorIs(t, err, ErrInvalidID, "put %q", id)
		_, err = repo.Get(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "get %q", id)
		assert.ErrorIs(t, repo.Delete(ctx, id), ErrInvalidID, "delete %q", id)
	}
}

func TestFileRepository_CorruptRecord(t *testing.T) {
	repo, _, dir := newTestRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600))

	_, err := repo.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFileRepository_PurgeExpired(t *testing.T) {
	repo, clock, dir := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Put(ctx, "short", "a", 1)
	require.NoError(t, err)
	_, err = repo.Put(ctx, "long", "b", 60)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0600))

	clock.Advance(2 * time.Minute)

	n, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, "short.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	got, err := repo.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Content)

	for _, name := range []string{"notes.txt", "junk.json"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "%s should be left alone", name)
	}
}

// xorSealer is a reversible stand-in for the real sealer.
type xorSealer struct{}

func (xorSealer) Seal(p []byte) ([]byte, error) { return xorBytes(p), nil }
func (xorSealer) Open(b []byte) ([]byte, error) { return xorBytes(b), nil }

func xorBytes(in []byte) []byte {
	out := make([]byte, len(in))
	for i, c := range in {
		out[i] = c ^ 0x5a
	}
	return out
}

func TestFileRepository_WithSealer(t *testing.T) {
	repo, _, dir := newTestRepo(t, WithSealer(xorSealer{}))
	ctx := context.Background()

	_, err := repo.Put(ctx, "sealed", "secret text", 10)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "sealed.json"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("secret text")))

	got, err := repo.Get(ctx, "sealed")
	require.NoError(t, err)
	assert.Equal(t, "secret text", got.Content)
}

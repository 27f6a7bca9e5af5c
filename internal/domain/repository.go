package domain

import (
	"context"
)

// SnippetRepository stores snippets by id. Implementations evict expired
// snippets lazily on Get.
type SnippetRepository interface {
	Get(ctx context.Context, id string) (*Snippet, error)
	Put(ctx context.Context, id, content string, lifetimeMinutes int) (*Snippet, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int, error)
}

// Sealer encrypts records before they reach the disk.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(blob []byte) ([]byte, error)
}

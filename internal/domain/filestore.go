package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileRepository implements SnippetRepository with one JSON file per snippet
// in a single directory.
type FileRepository struct {
	dir     string
	now     func() time.Time
	sealer  Sealer
	onEvict func(id string)
}

type FileOption func(*FileRepository)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) FileOption {
	return func(r *FileRepository) { r.now = now }
}

// WithSealer encrypts every record with s.
func WithSealer(s Sealer) FileOption {
	return func(r *FileRepository) { r.sealer = s }
}

// WithEvictHook registers fn to be called each time an expired snippet is
// removed, either on read or by PurgeExpired.
func WithEvictHook(fn func(id string)) FileOption {
	return func(r *FileRepository) { r.onEvict = fn }
}

// NewFileRepository returns a repository rooted at dir. The directory must
// already exist.
func NewFileRepository(dir string, opts ...FileOption) *FileRepository {
	r := &FileRepository{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *FileRepository) Get(ctx context.Context, id string) (*Snippet, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}
	rec, err := r.readRecord(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	s := &Snippet{ID: id, Content: rec.Content, Expiry: rec.Expiry}
	if !s.Live(r.now()) {
		if err := r.evict(id, path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (r *FileRepository) Put(ctx context.Context, id, content string, lifetimeMinutes int) (*Snippet, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}
	s := &Snippet{
		ID:      id,
		Content: content,
		Expiry:  r.now().Add(time.Duration(lifetimeMinutes) * time.Minute).UTC(),
	}
	data, err := json.Marshal(record{Content: s.Content, Expiry: s.Expiry})
	if err != nil {
		return nil, fmt.Errorf("could not encode %q: %w", id, err)
	}
	if r.sealer != nil {
		if data, err = r.sealer.Seal(data); err != nil {
			return nil, fmt.Errorf("could not seal %q: %w", id, err)
		}
	}
	if err := writeFileSync(path, data); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	path, err := r.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("could not remove %q: %w", path, err)
	}
	return nil
}

// PurgeExpired removes every expired record in the directory and returns how
// many were removed. Records that cannot be decoded are left alone.
func (r *FileRepository) PurgeExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("could not list %q: %w", r.dir, err)
	}
	now := r.now()
	purged := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id, ok := ValidateID(strings.TrimSuffix(name, recordExt))
		if !ok {
			continue
		}
		path := filepath.Join(r.dir, name)
		rec, err := r.readRecord(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.WithFields(log.Fields{"id": id, "err": err}).Warn("Skipping unreadable record")
			}
			continue
		}
		if now.After(rec.Expiry) {
			if err := r.evict(id, path); err != nil {
				return purged, err
			}
			purged++
		}
	}
	return purged, nil
}

func (r *FileRepository) readRecord(path string) (*record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("could not read %q: %w", path, err)
	}
	if r.sealer != nil {
		if data, err = r.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("could not open %q: %w", path, err)
		}
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("could not decode %q: %w", path, err)
	}
	return &rec, nil
}

// evict removes an expired record. A record already removed by a concurrent
// request counts as evicted.
func (r *FileRepository) evict(id, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove expired %q: %w", path, err)
	}
	log.WithField("id", id).Debug("Evicted expired snippet")
	if r.onEvict != nil {
		r.onEvict(id)
	}
	return nil
}

// pathFor maps a validated id to its record file.
func (r *FileRepository) pathFor(id string) (string, error) {
	if _, ok := ValidateID(id); !ok || strings.HasPrefix(id, "/") {
		return "", fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	return filepath.Join(r.dir, id+recordExt), nil
}

// writeFileSync replaces path with data through a synced temporary file, so
// readers see either the old record or the new one.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temp file for %q: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not sync %q: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("could not close %q: %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("could not rename into %q: %w", path, err)
	}
	return nil
}

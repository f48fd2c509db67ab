package loam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// abortTimeout bounds best-effort multipart cleanup after a failure.
const abortTimeout = 30 * time.Second

// FS is a buffered filesystem adapter over an object store.
//
// Writes to a URI accumulate in memory and become a remote object only on
// Flush (or, with multipart enabled, stream out as parts once the buffer
// reaches the configured part size). Reads address finalized objects only.
//
// Writes to different URIs never block each other. Concurrent writers to
// the same URI are serialized but their interleaving is unspecified.
type FS struct {
	store  Store
	cfg    Config
	logger *slog.Logger

	// sem bounds in-flight part uploads across all URIs.
	sem *semaphore.Weighted

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger used to report best-effort cleanup failures.
// The adapter is otherwise silent.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a buffered filesystem adapter on the given store.
func New(store Store, cfg Config, opts ...Option) (*FS, error) {
	if store == nil {
		return nil, errors.New("loam: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &FS{
		store:   store,
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		sem:     semaphore.NewWeighted(int64(cfg.MaxParallelOps)),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// -----------------------------------------------------------------------------
// Write surface
// -----------------------------------------------------------------------------

// Write appends data to the URI's buffer, opening a new write session if
// none exists. Nothing is visible to readers until Flush.
//
// With multipart enabled, each time the buffer reaches the configured part
// size the filled segment is submitted as a part and the write returns
// without waiting for the upload; upload failures surface on a later Write
// or at Flush. With multipart disabled, a write that would push the buffer
// past the part size fails with ErrBufferFull and mutates nothing.
func (f *FS) Write(ctx context.Context, uri string, data []byte) error {
	if uri == "" {
		return errors.New("loam: uri must not be empty")
	}

	e := f.entry(uri)
	e.mu.Lock()
	defer e.mu.Unlock()

	// A failed session is sticky: the buffered bytes are gone and the
	// caller must Flush (to discard and abort) and rewrite from scratch.
	if err := e.err(); err != nil {
		e.state = stateFailed
		return err
	}

	if !f.cfg.UseMultipart {
		if int64(len(data)) > f.cfg.PartSize-int64(len(e.buf)) {
			return ErrBufferFull
		}
		e.buf = append(e.buf, data...)
		return nil
	}

	e.buf = append(e.buf, data...)

	for int64(len(e.buf)) >= f.cfg.PartSize {
		if e.uploadID == "" {
			id, err := f.store.InitiateMultipart(ctx, uri)
			if err != nil {
				e.state = stateFailed
				wrapped := fmt.Errorf("loam: failed to initiate multipart upload: %w", err)
				e.recordErr(wrapped)
				return wrapped
			}
			e.uploadID = id
			e.state = stateMultipart
		}

		part := make([]byte, f.cfg.PartSize)
		copy(part, e.buf)
		e.buf = append(e.buf[:0], e.buf[f.cfg.PartSize:]...)

		f.launchPart(ctx, uri, e, e.nextPart, part)
		e.nextPart++
	}

	return nil
}

// launchPart submits one part upload through the shared slot pool.
// Completion order is unconstrained; parts are tracked by index.
func (f *FS) launchPart(ctx context.Context, uri string, e *entry, number int32, data []byte) {
	uploadID := e.uploadID
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		if err := f.sem.Acquire(ctx, 1); err != nil {
			e.recordErr(fmt.Errorf("loam: failed to acquire upload slot: %w", err))
			return
		}
		defer f.sem.Release(1)

		// Once any part fails the session is lost; skip the network call.
		if e.err() != nil {
			return
		}

		id, err := f.store.UploadPart(ctx, uri, uploadID, number, data)
		if err != nil {
			e.recordErr(fmt.Errorf("loam: failed to upload part %d: %w", number, err))
			return
		}
		e.recordPart(CompletedPart{Number: number, ID: id})
	}()
}

// Flush finalizes all buffered state for the URI into an immutable remote
// object and clears the write session.
//
// A URI with zero accumulated bytes is a no-op: no empty object is
// created. On failure the session is aborted best-effort, the buffered
// bytes are discarded, and the error is returned; a subsequent Write
// starts a fresh session. Flushing a URI with no open session succeeds.
func (f *FS) Flush(ctx context.Context, uri string) error {
	f.mu.Lock()
	e, ok := f.entries[uri]
	f.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer f.remove(uri)

	// Submit the remaining tail as the final part before the barrier.
	if e.state == stateMultipart && len(e.buf) > 0 && e.err() == nil {
		tail := make([]byte, len(e.buf))
		copy(tail, e.buf)
		e.buf = nil

		f.launchPart(ctx, uri, e, e.nextPart, tail)
		e.nextPart++
	}

	e.wg.Wait()

	if err := e.err(); err != nil {
		e.state = stateFailed
	}

	switch e.state {
	case stateFailed:
		if e.uploadID != "" {
			f.abort(uri, e.uploadID)
		}
		return e.err()

	case stateMultipart:
		if err := f.store.CompleteMultipart(ctx, uri, e.uploadID, e.completedParts()); err != nil {
			f.abort(uri, e.uploadID)
			return fmt.Errorf("loam: failed to complete multipart upload: %w", err)
		}
		return nil

	default:
		if len(e.buf) == 0 {
			return nil
		}
		if err := f.store.PutObject(ctx, uri, e.buf); err != nil {
			return fmt.Errorf("loam: failed to put object: %w", err)
		}
		return nil
	}
}

// Close drops all write sessions, aborting any open multipart state
// best-effort. Buffered bytes that were never flushed are discarded.
func (f *FS) Close() error {
	f.mu.Lock()
	entries := f.entries
	f.entries = make(map[string]*entry)
	f.mu.Unlock()

	for uri, e := range entries {
		e.mu.Lock()
		e.wg.Wait()
		if e.uploadID != "" {
			f.abort(uri, e.uploadID)
		}
		e.mu.Unlock()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Read surface
// -----------------------------------------------------------------------------

// IsObject reports whether the URI denotes a finalized object.
// Buffered, unflushed writes are never visible here.
func (f *FS) IsObject(ctx context.Context, uri string) (bool, error) {
	_, err := f.store.HeadObject(ctx, uri)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loam: failed to stat object: %w", err)
	}
	return true, nil
}

// ObjectSize returns the size of the finalized object at the URI.
// Returns ErrNotFound if no object has been flushed.
func (f *FS) ObjectSize(ctx context.Context, uri string) (int64, error) {
	size, err := f.store.HeadObject(ctx, uri)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("loam: failed to stat object: %w", err)
	}
	return size, nil
}

// Read fills p with len(p) bytes of the finalized object starting at
// offset. Returns ErrNotFound for an unflushed or nonexistent URI and
// ErrInvalidRange when the request extends beyond the object; p is not
// partially filled on error.
func (f *FS) Read(ctx context.Context, uri string, offset int64, p []byte) error {
	if offset < 0 {
		return ErrInvalidRange
	}

	size, err := f.store.HeadObject(ctx, uri)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loam: failed to stat object: %w", err)
	}

	length := int64(len(p))
	// Overflow-safe form of offset+length > size.
	if length > size-offset {
		return ErrInvalidRange
	}
	if length == 0 {
		return nil
	}

	data, err := f.store.GetRange(ctx, uri, offset, length)
	if err != nil {
		return fmt.Errorf("loam: failed to read range: %w", err)
	}
	if int64(len(data)) != length {
		return fmt.Errorf("loam: short range read: got %d bytes, want %d", len(data), length)
	}

	copy(p, data)
	return nil
}

// -----------------------------------------------------------------------------
// Cache bookkeeping
// -----------------------------------------------------------------------------

// entry returns the URI's write cache entry, creating it on first write.
func (f *FS) entry(uri string) *entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[uri]
	if !ok {
		e = newEntry()
		f.entries[uri] = e
	}
	return e
}

func (f *FS) remove(uri string) {
	f.mu.Lock()
	delete(f.entries, uri)
	f.mu.Unlock()
}

// abort releases server-side multipart state best-effort. Failures are
// logged and never mask the error that triggered the abort. A background
// context is used so cleanup survives caller cancellation.
func (f *FS) abort(uri, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	if err := f.store.AbortMultipart(ctx, uri, uploadID); err != nil {
		f.logger.Warn("failed to abort multipart session",
			"uri", uri, "upload_id", uploadID, "error", err)
	}
}

// Package loam presents buffered, POSIX-like file semantics on top of
// S3-compatible object storage.
//
// Object stores have no append operation. Loam reconciles that with
// sequential write semantics by accumulating writes per URI in memory and
// materializing a remote object only on Flush. Large files are uploaded in
// size-bounded parts, optionally in parallel, and reassembled transparently
// for random-offset reads.
//
// Loam focuses on the write-buffer/flush/read lifecycle. It does not
// implement retry policy, credential resolution, or cross-client
// consistency reconciliation; those belong to the transport layer.
package loam

import "context"

// -----------------------------------------------------------------------------
// Transport contract
// -----------------------------------------------------------------------------

// CompletedPart identifies one uploaded part of a multipart session.
type CompletedPart struct {
	// Number is the 1-based part index assigned at submission time.
	// It determines the part's position in the finalized object,
	// regardless of upload completion order.
	Number int32

	// ID is the remote identifier returned by the store (an ETag on S3).
	ID string
}

// Store abstracts the underlying object-store transport.
//
// Implementations may target S3-compatible services or in-memory state.
// Loam performs no retries; transient-failure handling is the
// implementation's concern.
type Store interface {
	// PutObject writes a complete object in a single call, replacing any
	// existing object at the URI.
	PutObject(ctx context.Context, uri string, data []byte) error

	// InitiateMultipart opens a multipart session and returns its upload ID.
	InitiateMultipart(ctx context.Context, uri string) (string, error)

	// UploadPart uploads one part of an open session and returns the
	// remote part identifier.
	UploadPart(ctx context.Context, uri, uploadID string, number int32, data []byte) (string, error)

	// CompleteMultipart finalizes a session from parts listed in index order.
	CompleteMultipart(ctx context.Context, uri, uploadID string, parts []CompletedPart) error

	// AbortMultipart releases server-side state of an open session.
	// Best-effort: callers must not treat failure as fatal.
	AbortMultipart(ctx context.Context, uri, uploadID string) error

	// GetRange reads length bytes starting at offset.
	// Returns ErrNotFound if the object does not exist.
	GetRange(ctx context.Context, uri string, offset, length int64) ([]byte, error)

	// HeadObject returns the object's size in bytes.
	// Returns ErrNotFound if the object does not exist.
	HeadObject(ctx context.Context, uri string) (int64, error)

	// DeleteObject removes the object if it exists (idempotent).
	DeleteObject(ctx context.Context, uri string) error

	// List returns the URIs of objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a read or size query on a URI with no
	// finalized object.
	ErrNotFound = errNotFound{}

	// ErrBufferFull indicates a write that would push a URI's buffer past
	// the part size limit while multipart upload is disabled. The buffer
	// is left unchanged.
	ErrBufferFull = errBufferFull{}

	// ErrInvalidRange indicates a read extending beyond the object's size.
	ErrInvalidRange = errInvalidRange{}
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errBufferFull struct{}

func (errBufferFull) Error() string {
	return "write buffer full: multipart upload disabled and part size limit reached"
}

type errInvalidRange struct{}

func (errInvalidRange) Error() string { return "invalid range: read exceeds object bounds" }

package loam

import (
	"sort"
	"sync"
)

// sessionState tracks the lifecycle of a URI's write session.
type sessionState int

const (
	// stateBuffering: bytes accumulate in memory, no remote state exists.
	stateBuffering sessionState = iota

	// stateMultipart: a multipart session is open and at least one part
	// has been submitted.
	stateMultipart

	// stateFailed: an upload failed. Terminal; the buffered bytes are not
	// recoverable and the caller must rewrite from scratch.
	stateFailed
)

// entry is the in-memory write state for one URI.
//
// mu serializes Write and Flush for the URI. Part-upload goroutines never
// take mu; completions go through partMu so uploads can finish while the
// caller keeps writing.
type entry struct {
	mu sync.Mutex

	state sessionState

	// buf holds bytes not yet submitted as a part. While multipart is
	// active it stays below the configured part size.
	buf []byte

	// uploadID identifies the open multipart session, empty in
	// stateBuffering.
	uploadID string

	// nextPart is the next 1-based part index to assign.
	nextPart int32

	// wg tracks in-flight part uploads.
	wg sync.WaitGroup

	// partMu guards parts and uploadErr against concurrent completions.
	partMu    sync.Mutex
	parts     []CompletedPart
	uploadErr error
}

func newEntry() *entry {
	return &entry{nextPart: 1}
}

// recordPart stores a completed part descriptor, keyed by index.
func (e *entry) recordPart(p CompletedPart) {
	e.partMu.Lock()
	e.parts = append(e.parts, p)
	e.partMu.Unlock()
}

// recordErr marks the session failed, keeping the first error.
func (e *entry) recordErr(err error) {
	e.partMu.Lock()
	if e.uploadErr == nil {
		e.uploadErr = err
	}
	e.partMu.Unlock()
}

// err returns the recorded upload error, if any.
func (e *entry) err() error {
	e.partMu.Lock()
	defer e.partMu.Unlock()
	return e.uploadErr
}

// completedParts returns all recorded parts in index order. Valid only
// after wg.Wait, when no completions are outstanding.
func (e *entry) completedParts() []CompletedPart {
	e.partMu.Lock()
	defer e.partMu.Unlock()

	parts := make([]CompletedPart, len(e.parts))
	copy(parts, e.parts)
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Number < parts[j].Number
	})
	return parts
}

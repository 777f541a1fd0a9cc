// internal/storage/storage.go
package storage

import "github.com/ThirdPersonSW2/extension/pkg/core"

// Backend is the interface all session journal implementations must satisfy.
// RecordSession is called on the host thread and must not block on I/O.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	RecordSession(rec core.SessionRecord) error
}

// Lister is implemented by backends that can read sessions back.
type Lister interface {
	Sessions() ([]core.SessionRecord, error)
}

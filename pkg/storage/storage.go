// Package storage defines the FileStore interface for reading clip audio
// and writing rendered output. It abstracts the underlying backend so
// that clip libraries can live on local disk or in an S3-compatible
// object store without changing rendering code.
//
// Raw PCM clips are often consumed from an offset partway into the file,
// so the interface supports byte-range reads in addition to whole-file
// reads.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadRange opens the named file for reading starting at the given
	// byte offset. If length is negative the range extends to the end of
	// the file; otherwise at most length bytes are readable. A range that
	// starts past the end of the file yields an empty reader, not an
	// error, so callers can zero-pad short sources uniformly.
	ReadRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error)

	// Write opens the named file for writing.
	// If the file already exists it is truncated.
	// Parent directories are created automatically.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

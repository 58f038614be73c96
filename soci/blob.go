package soci

import (
	"context"

	"github.com/soci-go/soci/backend"
)

// Blob is a streamed large-object handle bound to one Session. It wraps a
// backend.Blob and is move-only in spirit: Go can't delete a copy
// constructor the way the original blob class does, so callers must treat
// a Blob as non-comparable and must not use it from more than one
// goroutine at a time — the same convention backend.Blob documents.
type Blob struct {
	backend backend.Blob
}

func newBlob(b backend.Blob) *Blob { return &Blob{backend: b} }

// Len returns the BLOB's current length in bytes.
func (b *Blob) Len(ctx context.Context) (int, error) {
	n, err := b.backend.Len(ctx)
	if err != nil {
		return 0, wrapBackendErr(err)
	}
	return n, nil
}

// ReadFromStart reads into buf starting at offset, returning the number
// of bytes actually read.
func (b *Blob) ReadFromStart(ctx context.Context, buf []byte, offset int) (int, error) {
	n, err := b.backend.ReadFromStart(ctx, buf, offset)
	if err != nil {
		return n, wrapBackendErr(err)
	}
	return n, nil
}

// WriteFromStart overwrites the BLOB's contents starting at offset with
// buf, returning the number of bytes written.
func (b *Blob) WriteFromStart(ctx context.Context, buf []byte, offset int) (int, error) {
	n, err := b.backend.WriteFromStart(ctx, buf, offset)
	if err != nil {
		return n, wrapBackendErr(err)
	}
	return n, nil
}

// Append adds buf to the end of the BLOB.
func (b *Blob) Append(ctx context.Context, buf []byte) (int, error) {
	n, err := b.backend.Append(ctx, buf)
	if err != nil {
		return n, wrapBackendErr(err)
	}
	return n, nil
}

// Trim truncates the BLOB to newLen bytes.
func (b *Blob) Trim(ctx context.Context, newLen int) error {
	if err := b.backend.Trim(ctx, newLen); err != nil {
		return wrapBackendErr(err)
	}
	return nil
}

// Close releases the BLOB handle's backend resources.
func (b *Blob) Close(ctx context.Context) error {
	if err := b.backend.Close(ctx); err != nil {
		return wrapBackendErr(err)
	}
	return nil
}

// RowID is an opaque backend row identifier (PostgreSQL oid).
type RowID struct {
	backend backend.RowID
}

func newRowID(b backend.RowID) *RowID { return &RowID{backend: b} }

func (r *RowID) String() string { return r.backend.String() }

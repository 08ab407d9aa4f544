package git

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
)

// GraphRef is the ref holding the persisted branch graph
const GraphRef = plumbing.ReferenceName("refs/cascade/graph")

// ReadGraphBlob returns the content of the blob behind GraphRef. A missing ref
// yields nil content.
func (r *Repository) ReadGraphBlob() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Reference(GraphRef, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", GraphRef, err)
	}

	blob, err := r.repo.BlobObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read graph blob %s: %w", ref.Hash(), err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open graph blob: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph blob: %w", err)
	}
	return content, nil
}

// WriteGraphBlob stores content as a blob and points GraphRef at it. The ref
// update is the commit point: readers see either the old or the new graph.
func (r *Repository) WriteGraphBlob(content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return fmt.Errorf("failed to create graph blob: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write graph blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write graph blob: %w", err)
	}

	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("failed to store graph blob: %w", err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(GraphRef, hash)); err != nil {
		return fmt.Errorf("failed to update %s: %w", GraphRef, err)
	}
	return nil
}

// DeleteGraphRef removes GraphRef
func (r *Repository) DeleteGraphRef() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Storer.RemoveReference(GraphRef)
}

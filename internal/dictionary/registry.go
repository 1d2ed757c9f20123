package dictionary

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
)

// Registry holds dictionaries by ID.
//
// Thread-safety: safe for concurrent use; workers read while the CLI may
// reload.
type Registry struct {
	mu    sync.RWMutex
	dicts map[string]ir.DataDictionary
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dicts: make(map[string]ir.DataDictionary)}
}

// Add validates d and stores it, replacing any dictionary with the same ID.
func (r *Registry) Add(d ir.DataDictionary) error {
	if errs := Validate(d); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return errors.Newf("invalid dictionary %q: %s", d.ID, strings.Join(msgs, "; "))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dicts[d.ID] = d
	return nil
}

// Get returns the dictionary with the given ID.
func (r *Registry) Get(id string) (ir.DataDictionary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dicts[id]
	return d, ok
}

// IDs returns the registered IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.dicts))
	for id := range r.dicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir adds every dictionary file found under dir. Files are read in
// lexical order, so a later file wins on duplicate IDs.
func (r *Registry) LoadDir(dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "scan dictionaries in %s", dir)
	}

	for _, path := range paths {
		dicts, err := LoadFile(path)
		if err != nil {
			return err
		}
		for _, d := range dicts {
			if err := r.Add(d); err != nil {
				return errors.Wrap(err, path)
			}
		}
	}

	slog.Debug("dictionaries loaded", "dir", dir, "files", len(paths), "dictionaries", len(r.IDs()))
	return nil
}

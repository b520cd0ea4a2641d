// Package storage implements the entry store as a single JSON document on
// disk. It is the alternative to the SQL repository for single-user setups.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/bodylog/internal/models"
)

// document is the on-disk layout.
type document struct {
	Entries []models.Entry `json:"entries"`
	// NextID is persisted so ids are never reused after deletion or restart.
	NextID int64 `json:"next_id"`
	// LastSyncedID is the sync watermark.
	LastSyncedID int64 `json:"last_synced_id"`
}

// FileStore keeps entries and the sync watermark in one JSON file.
// Every operation holds an advisory lock on "<path>.lock" and re-reads the
// file first, so several processes may share one store.
type FileStore struct {
	path string
	mu   sync.Mutex
	doc  document
}

// Open loads the store at path, creating an empty one if the file does not exist.
func Open(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load re-reads the file into memory.
func (fs *FileStore) Load() error {
	return fs.locked(func() error { return nil })
}

// locked runs fn with the process mutex and the file lock held, after
// refreshing fs.doc from disk.
func (fs *FileStore) locked(fn func() error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	unlock, err := lockFile(fs.path + ".lock")
	if err != nil {
		return fmt.Errorf("lock %s: %w: %w", fs.path, models.ErrStorage, err)
	}
	defer unlock()

	if err := fs.reload(); err != nil {
		return err
	}
	return fn()
}

func (fs *FileStore) reload() error {
	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.doc = document{Entries: []models.Entry{}, NextID: 1}
			return nil
		}
		return fmt.Errorf("open %s: %w: %w", fs.path, models.ErrStorage, err)
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("decode %s: %w: %w", fs.path, models.ErrStorage, err)
	}
	if doc.Entries == nil {
		doc.Entries = []models.Entry{}
	}
	// Repair a counter that fell behind the data, e.g. a hand-edited file.
	for _, e := range doc.Entries {
		if e.ID >= doc.NextID {
			doc.NextID = e.ID + 1
		}
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	fs.doc = doc
	return nil
}

// save writes doc to a temp file and renames it over the store file.
// The in-memory document is replaced only after the rename succeeds.
func (fs *FileStore) save(doc document) error {
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".bodylog-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(&doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode: %w: %w", models.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w: %w", models.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w: %w", models.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("rename: %w: %w", models.ErrStorage, err)
	}
	fs.doc = doc
	return nil
}

// clone returns a copy of the document whose slices can be mutated freely.
func (fs *FileStore) clone() document {
	doc := fs.doc
	doc.Entries = append([]models.Entry(nil), fs.doc.Entries...)
	return doc
}

// Insert assigns the next id to e and persists it.
func (fs *FileStore) Insert(_ context.Context, e models.Entry) (int64, error) {
	err := fs.locked(func() error {
		doc := fs.clone()
		e.ID = doc.NextID
		doc.NextID++
		doc.Entries = append(doc.Entries, e)
		return fs.save(doc)
	})
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return e.ID, nil
}

// ListAll returns a copy of every stored entry in insertion order.
func (fs *FileStore) ListAll(_ context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	err := fs.locked(func() error {
		entries = append([]models.Entry{}, fs.doc.Entries...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// DeleteMany removes the given ids; unknown ids are ignored.
func (fs *FileStore) DeleteMany(_ context.Context, ids []int64) error {
	err := fs.locked(func() error {
		doc, changed := fs.without(ids)
		if !changed {
			return nil
		}
		return fs.save(doc)
	})
	if err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	return nil
}

func (fs *FileStore) without(ids []int64) (document, bool) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	doc := fs.doc
	doc.Entries = make([]models.Entry, 0, len(fs.doc.Entries))
	for _, e := range fs.doc.Entries {
		if _, ok := drop[e.ID]; ok {
			continue
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, len(doc.Entries) != len(fs.doc.Entries)
}

// LoadWatermark returns the last synced id.
func (fs *FileStore) LoadWatermark(_ context.Context) (int64, error) {
	var v int64
	err := fs.locked(func() error {
		v = fs.doc.LastSyncedID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load watermark: %w", err)
	}
	return v, nil
}

// SaveWatermark persists the last synced id.
func (fs *FileStore) SaveWatermark(_ context.Context, v int64) error {
	err := fs.locked(func() error {
		doc := fs.clone()
		doc.LastSyncedID = v
		return fs.save(doc)
	})
	if err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}

// PurgeAndAdvance removes ids and stores the watermark in one file write.
func (fs *FileStore) PurgeAndAdvance(_ context.Context, ids []int64, watermark int64) error {
	err := fs.locked(func() error {
		doc, _ := fs.without(ids)
		doc.LastSyncedID = watermark
		return fs.save(doc)
	})
	if err != nil {
		return fmt.Errorf("purge and advance: %w", err)
	}
	return nil
}

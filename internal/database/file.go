package database

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/models"
)

// File is a Store on the local filesystem: the snapshot in one JSON file,
// events appended as JSON lines next to it.
type File struct {
	path string
}

// NewFile creates a store writing the snapshot to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// JournalPath returns the file events are appended to.
func (f *File) JournalPath() string {
	return f.path + ".events"
}

// Load returns the stored snapshot, or nil when the file does not exist.
func (f *File) Load(_ context.Context) (*engine.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return engine.UnmarshalSnapshot(data)
}

// Save journals events, then replaces the snapshot atomically.
func (f *File) Save(_ context.Context, snap *engine.Snapshot, events []models.Event) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	if err := f.appendEvents(events); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) appendEvents(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	journal, err := os.OpenFile(f.JournalPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	w := bufio.NewWriter(journal)
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("journal event %s: %w", ev.ID, err)
		}
	}
	return w.Flush()
}

// Events reads up to limit journaled events at or above height since, oldest
// first. A non-positive limit reads everything.
func (f *File) Events(_ context.Context, since uint64, limit int) ([]models.Event, error) {
	journal, err := os.Open(f.JournalPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer journal.Close()

	var out []models.Event
	dec := json.NewDecoder(journal)
	for dec.More() && (limit <= 0 || len(out) < limit) {
		var ev models.Event
		if err := dec.Decode(&ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if ev.Height >= since {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *File) Close() error { return nil }

package roomstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"partyseq/internal/model"
)

// File persists the full room map as one JSON document, rewritten via a
// temp file and rename so readers never observe a partial write.
type File struct {
	path  string
	mu    sync.Mutex
	rooms map[string]*model.Room
}

func NewFile(path string) (*File, error) {
	f := &File{path: path, rooms: make(map[string]*model.Room)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read room file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.rooms); err != nil {
		return nil, fmt.Errorf("decode room file: %w", err)
	}
	return f, nil
}

func (f *File) Load(_ context.Context) ([]*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (f *File) Save(_ context.Context, room *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.Code] = room.Clone()
	return f.write()
}

func (f *File) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[code]; !ok {
		return nil
	}
	delete(f.rooms, code)
	return f.write()
}

func (f *File) Close() {}

func (f *File) write() error {
	data, err := json.Marshal(f.rooms)
	if err != nil {
		return fmt.Errorf("encode room file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".rooms-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

package w4dj

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const StateFileName = ".w4dj-state.json"

// SyncState remembers which containers were already decoded into a
// destination library. Decoded files never have the size of their
// container, so the size comparison alone cannot tell them apart.
type SyncState struct {
	sync.Mutex

	dir string

	Songs map[string]SongState `json:"songs"`
}

type SongState struct {
	SourceSize int64  `json:"source_size"`
	Output     string `json:"output"`
}

func (s *SyncState) Read(dir string) error {
	s.dir = dir
	s.Songs = map[string]SongState{}

	content, err := os.ReadFile(filepath.Join(dir, StateFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed reading state file: %w", err)
	}

	if err := json.Unmarshal(content, &s); err != nil {
		return fmt.Errorf("failed unmarshalling state file: %w", err)
	}

	if s.Songs == nil {
		s.Songs = map[string]SongState{}
	}

	return nil
}

// Record stores the outcome of a decode. It is safe to call from multiple
// workers.
func (s *SyncState) Record(stem string, sourceSize int64, output string) {
	s.Lock()
	defer s.Unlock()

	if s.Songs == nil {
		s.Songs = map[string]SongState{}
	}

	s.Songs[stem] = SongState{SourceSize: sourceSize, Output: output}
}

// UpToDate reports whether stem was decoded from a source of the same size
// and the produced file is still present.
func (s *SyncState) UpToDate(stem string, sourceSize int64) bool {
	s.Lock()
	defer s.Unlock()

	song, ok := s.Songs[stem]
	if !ok || song.SourceSize != sourceSize || song.Output == "" {
		return false
	}

	_, err := os.Stat(filepath.Join(s.dir, song.Output))
	return err == nil
}

func (s *SyncState) Write() error {
	s.Lock()
	defer s.Unlock()

	// Write to a temporary file next to the final one and rename it in place,
	// readers never observe a half written state.
	tmpFile, err := os.CreateTemp(s.dir, StateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed creating temporary file for state: %w", err)
	}

	defer func() { _ = os.Remove(tmpFile.Name()) }()

	if err := json.NewEncoder(tmpFile).Encode(&s); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed writing marshalled state: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed closing temporary state file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filepath.Join(s.dir, StateFileName)); err != nil {
		return fmt.Errorf("failed replacing state file: %w", err)
	}

	return nil
}

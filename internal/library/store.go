package library

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/cwbudde/algo-player/internal/playback"
)

const (
	filesDir  = "files"
	stateFile = "state.json"
	dataExt   = ".data"
	metaExt   = ".json"
)

type fileMeta struct {
	Name         string `json:"name"`
	LastModified int64  `json:"lastModified"`
	Type         string `json:"type"`
}

type state struct {
	ActiveFileIndex int `json:"activeFileIndex"`
}

// Store persists tracks under a directory, one data file and one metadata
// file per track name. Failures are logged and read as empty state.
type Store struct {
	dir    string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger for storage faults.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) trackPath(name, ext string) string {
	return filepath.Join(s.dir, filesDir, url.PathEscape(name)+ext)
}

// LoadAll returns every stored track ordered by name.
func (s *Store) LoadAll() []playback.File {
	entries, err := os.ReadDir(filepath.Join(s.dir, filesDir))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("track store read failed", "error", err)
		}

		return nil
	}

	metas := lo.FilterMap(entries, func(e fs.DirEntry, _ int) (fileMeta, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaExt) {
			return fileMeta{}, false
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, filesDir, e.Name()))
		if err != nil {
			s.logger.Warn("track metadata unreadable", "file", e.Name(), "error", err)

			return fileMeta{}, false
		}

		var m fileMeta
		if err := json.Unmarshal(raw, &m); err != nil || m.Name == "" {
			s.logger.Warn("track metadata ignored", "file", e.Name(), "error", err)

			return fileMeta{}, false
		}

		return m, true
	})

	slices.SortFunc(metas, func(a, b fileMeta) int { return strings.Compare(a.Name, b.Name) })

	return lo.FilterMap(metas, func(m fileMeta, _ int) (playback.File, bool) {
		data, err := os.ReadFile(s.trackPath(m.Name, dataExt))
		if err != nil {
			s.logger.Warn("track data unreadable", "name", m.Name, "error", err)

			return playback.File{}, false
		}

		return playback.File{
			Name:         m.Name,
			Data:         data,
			LastModified: time.UnixMilli(m.LastModified),
			MIME:         m.Type,
		}, true
	})
}

// SaveAll writes files, replacing tracks with the same name. Tracks not
// in files are kept.
func (s *Store) SaveAll(files []playback.File) {
	if err := os.MkdirAll(filepath.Join(s.dir, filesDir), 0o755); err != nil {
		s.logger.Warn("track store unavailable", "error", err)

		return
	}

	for _, f := range files {
		if err := s.save(f); err != nil {
			s.logger.Warn("track save failed", "name", f.Name, "error", err)
		}
	}
}

func (s *Store) save(f playback.File) error {
	if err := os.WriteFile(s.trackPath(f.Name, dataExt), f.Data, 0o644); err != nil {
		return err
	}

	raw, err := json.Marshal(fileMeta{Name: f.Name, LastModified: f.LastModified.UnixMilli(), Type: f.MIME})
	if err != nil {
		return err
	}

	// metadata last: a track without it is not listed
	return os.WriteFile(s.trackPath(f.Name, metaExt), raw, 0o644)
}

// ClearAll removes every track and the saved index.
func (s *Store) ClearAll() {
	if err := os.RemoveAll(filepath.Join(s.dir, filesDir)); err != nil {
		s.logger.Warn("track store clear failed", "error", err)
	}

	if err := os.Remove(filepath.Join(s.dir, stateFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("track state clear failed", "error", err)
	}
}

// LoadActiveIndex returns the saved index, or 0.
func (s *Store) LoadActiveIndex() int {
	raw, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("track state unreadable", "error", err)
		}

		return 0
	}

	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Warn("track state ignored", "error", err)

		return 0
	}

	return st.ActiveFileIndex
}

// SaveActiveIndex records the active index.
func (s *Store) SaveActiveIndex(i int) {
	raw, err := json.Marshal(state{ActiveFileIndex: i})
	if err != nil {
		return
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("track state unavailable", "error", err)

		return
	}

	if err := os.WriteFile(filepath.Join(s.dir, stateFile), raw, 0o644); err != nil {
		s.logger.Warn("track state write failed", "error", err)
	}
}

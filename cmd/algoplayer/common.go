package main

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/GiGurra/boa/pkg/boa"
	"golang.org/x/term"

	"github.com/cwbudde/algo-player/internal/media"
	"github.com/cwbudde/algo-player/internal/playback"
)

const appName = "algoplayer"

func paramEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

// newLogger writes text records to path, or discards them when path is
// empty. Interactive commands own the terminal, so stderr is never used.
func newLogger(path string, verbose bool) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
}

// stderrLogger is used by the one-shot commands.
func stderrLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// configPath returns <user config dir>/algoplayer/<name>, creating the
// directory.
func configPath(name string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return filepath.Join(dir, name), nil
}

// readTrack loads an audio file from disk. Files whose format cannot be
// recognized are rejected before they reach the library.
func readTrack(path string) (playback.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return playback.File{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return playback.File{}, err
	}

	f := playback.File{
		Name:         filepath.Base(path),
		Data:         data,
		LastModified: info.ModTime(),
		MIME:         mime.TypeByExtension(filepath.Ext(path)),
	}

	if media.DetectFormat(f.MIME, f.Name, data[:min(len(data), 16)]) == media.FormatUnknown {
		return playback.File{}, fmt.Errorf("%s: unsupported audio format", path)
	}

	return f, nil
}

func readTracks(paths []string) ([]playback.File, error) {
	files := make([]playback.File, 0, len(paths))
	for _, p := range paths {
		f, err := readTrack(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}

	return 80
}

package app

import (
	"context"
	"errors"
	"slices"

	"github.com/cwbudde/algo-player/internal/equalizer"
	"github.com/cwbudde/algo-player/internal/library"
	"github.com/cwbudde/algo-player/internal/mediasession"
	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/stations"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

// PlayFile plays f directly, outside the library order.
func (s *Session) PlayFile(ctx context.Context, f playback.File) error {
	s.setMode(settings.ModeMusic)

	return s.open(ctx, playback.FileDescriptor(f), true)
}

// PlayTrack makes library track i active and plays it.
func (s *Session) PlayTrack(ctx context.Context, i int) error {
	if !s.library.ChangeActive(i) {
		return ErrNothingToPlay
	}
	s.persistActive()
	s.setMode(settings.ModeMusic)

	return s.playActiveTrack(ctx)
}

// PlayStation makes station id active and plays it. The station's
// upstream address, when known, is the fallback source.
func (s *Session) PlayStation(ctx context.Context, id int) error {
	if s.stations == nil {
		return ErrNoStations
	}

	st, ok := s.stations.ChangeActive(id)
	if !ok {
		return ErrNothingToPlay
	}
	s.setMode(settings.ModeRadio)

	return s.open(ctx, stationDescriptor(st), true)
}

// PlayActive plays the active entry of the current mode.
func (s *Session) PlayActive(ctx context.Context) error {
	if s.prefs.Snapshot().Mode == settings.ModeRadio {
		if s.stations == nil {
			return ErrNoStations
		}

		st, ok := s.stations.Active()
		if !ok {
			return ErrNothingToPlay
		}

		return s.open(ctx, stationDescriptor(st), true)
	}

	return s.playActiveTrack(ctx)
}

// TogglePlay pauses while playing; otherwise it resumes the loaded source
// or starts the active entry.
func (s *Session) TogglePlay(ctx context.Context) error {
	if s.player.State().IsPlaying {
		s.player.Pause()

		return nil
	}

	if _, ok := s.player.Current(); ok {
		return s.player.Play(ctx)
	}

	return s.PlayActive(ctx)
}

// Pause pauses playback.
func (s *Session) Pause() { s.player.Pause() }

// Next moves to the next track or station and plays it. At the end of the
// library without repeat it does nothing.
func (s *Session) Next(ctx context.Context) error {
	return s.step(ctx, 1)
}

// Prev moves to the previous track or station and plays it.
func (s *Session) Prev(ctx context.Context) error {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, dir int) error {
	if s.prefs.Snapshot().Mode == settings.ModeRadio {
		if s.stations == nil {
			return ErrNoStations
		}

		next := s.stations.Next
		if dir < 0 {
			next = s.stations.Prev
		}

		st, ok := next()
		if !ok {
			return ErrNothingToPlay
		}

		return s.open(ctx, stationDescriptor(st), true)
	}

	if dir < 0 {
		if !s.library.Prev() {
			return ErrNothingToPlay
		}
	} else if !s.library.Next() {
		return nil
	}
	s.persistActive()

	return s.playActiveTrack(ctx)
}

// Seek moves to seconds, clamped to the duration.
func (s *Session) Seek(seconds float64) {
	s.seek(func() { s.player.Seek(seconds) })
}

// SeekBy moves delta seconds from the playhead.
func (s *Session) SeekBy(delta float64) {
	s.seek(func() { s.player.SeekBy(delta) })
}

// SeekFraction moves to fraction (0..1) of the duration.
func (s *Session) SeekFraction(fraction float64) {
	s.seek(func() { s.player.SeekFraction(fraction) })
}

// SeekForward jumps SeekStep seconds ahead.
func (s *Session) SeekForward() { s.SeekBy(SeekStep) }

// SeekBackward jumps SeekStep seconds back.
func (s *Session) SeekBackward() { s.SeekBy(-SeekStep) }

// UndoSeek returns to the position before the last seek.
func (s *Session) UndoSeek() bool {
	undone := false
	s.seek(func() { undone = s.player.UndoSeek() })

	return undone
}

// seek runs move and stores the new playhead without waiting for the
// throttle.
func (s *Session) seek(move func()) {
	move()
	s.flushPosition()
}

// AddFiles appends files to the library, keeping the active track.
func (s *Session) AddFiles(files ...playback.File) {
	s.library.UpdateWithoutReset(append(s.library.Files(), files...))

	if s.tracks != nil {
		s.tracks.SaveAll(s.library.Files())
	}
}

// ReplaceLibrary swaps the whole track list and resets its order.
func (s *Session) ReplaceLibrary(files []playback.File) {
	s.library.Update(files)

	if s.tracks != nil {
		s.tracks.ClearAll()
		s.tracks.SaveAll(files)
		s.tracks.SaveActiveIndex(0)
	}
}

// TrackDuration probes and caches the length of f in seconds.
func (s *Session) TrackDuration(f playback.File) float64 {
	return s.durations.Duration(f)
}

// RefreshStations fetches the directory unless the cached copy is fresh.
func (s *Session) RefreshStations(ctx context.Context, force bool) error {
	if s.stations == nil {
		return ErrNoStations
	}

	return s.stations.Fetch(ctx, force)
}

// CyclePreset applies the equalizer preset after the current one and
// returns its name.
func (s *Session) CyclePreset() string {
	name := equalizer.NextPreset(s.prefs.Snapshot().EqualizerPreset)
	s.prefs.ApplyPreset(name)

	return name
}

// CycleVisualization selects the next drawing strategy and returns it.
func (s *Session) CycleVisualization() visualizer.Type {
	cur := visualizer.Type(s.prefs.Snapshot().Visualization)
	next := visualizer.Types[(slices.Index(visualizer.Types, cur)+1)%len(visualizer.Types)]

	s.prefs.Update(func(snap *settings.Snapshot) { snap.Visualization = string(next) })

	return next
}

func (s *Session) playActiveTrack(ctx context.Context) error {
	f, ok := s.library.Active()
	if !ok {
		return ErrNothingToPlay
	}

	return s.open(ctx, playback.FileDescriptor(f), true)
}

func stationDescriptor(st stations.Station) playback.Descriptor {
	d := playback.StreamDescriptor(st.ID, st.Name, st.Src)
	if st.Direct != "" && st.Direct != st.Src {
		d.FallbackSrc = st.Direct
	}

	return d
}

// open loads d unless it is already current, restores the stored
// position of files and optionally starts playback. Position saving is
// suppressed for the whole load.
func (s *Session) open(ctx context.Context, d playback.Descriptor, play bool) error {
	if cur, ok := s.player.Current(); ok && cur.ID == d.ID {
		if !play {
			return nil
		}

		return s.player.Play(ctx)
	}

	s.flushPosition()
	s.tracker.Suppress(true)
	if d.Type == playback.SourceFile && d.File != nil {
		s.track(d.File.Name, d.ID)
	} else {
		s.track("", "")
	}

	if err := s.player.Load(ctx, d); err != nil {
		if !errors.Is(err, playback.ErrSuperseded) {
			s.tracker.Suppress(false)
		}

		return err
	}

	if d.Type == playback.SourceFile {
		s.tracker.Restore()
	}
	s.tracker.Suppress(false)
	s.flushPosition()

	s.publishMetadata(d)

	if !play {
		return nil
	}

	return s.player.Play(ctx)
}

func (s *Session) publishMetadata(d playback.Descriptor) {
	if d.File == nil {
		m := mediasession.Metadata{Title: d.Label, Artist: "Radio"}
		if s.stations != nil {
			if st, ok := s.stations.Active(); ok && st.Name == d.Label {
				m.Album = st.Category
			}
		}
		s.media.SetMetadata(m)

		return
	}

	tags, err := library.ReadTags(*d.File)
	if err != nil {
		s.logger.Debug("no tags", "track", d.File.Name, "error", err)
	}

	m := mediasession.Metadata{Title: tags.Title, Artist: tags.Artist, Album: tags.Album}
	if len(tags.Picture) > 0 {
		art, err := mediasession.ArtworkFromPicture(tags.Picture)
		if err != nil {
			s.logger.Debug("cover art unreadable", "track", d.File.Name, "error", err)
		}
		m.Artwork = art
	}
	s.media.SetMetadata(m)
}

func (s *Session) setMode(m settings.Mode) {
	if s.prefs.Snapshot().Mode == m {
		return
	}

	s.prefs.Update(func(snap *settings.Snapshot) { snap.Mode = m })
}

func (s *Session) persistActive() {
	if s.tracks != nil {
		s.tracks.SaveActiveIndex(s.library.ActiveIndex())
	}
}

func (s *Session) actionHandlers() map[mediasession.Action]mediasession.Handler {
	report := func(action mediasession.Action, err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("media session action failed", "action", action, "error", err)
		}
	}

	seek := func(sign float64) mediasession.Handler {
		return func(d mediasession.ActionDetails) {
			offset := d.SeekOffset
			if offset <= 0 {
				offset = SeekStep
			}
			s.SeekBy(sign * offset)
		}
	}

	return map[mediasession.Action]mediasession.Handler{
		mediasession.ActionPlay: func(mediasession.ActionDetails) {
			if _, ok := s.player.Current(); ok {
				report(mediasession.ActionPlay, s.player.Play(s.ctx))

				return
			}
			report(mediasession.ActionPlay, s.PlayActive(s.ctx))
		},
		mediasession.ActionPause: func(mediasession.ActionDetails) { s.player.Pause() },
		mediasession.ActionPreviousTrack: func(mediasession.ActionDetails) {
			report(mediasession.ActionPreviousTrack, s.Prev(s.ctx))
		},
		mediasession.ActionNextTrack: func(mediasession.ActionDetails) {
			report(mediasession.ActionNextTrack, s.Next(s.ctx))
		},
		mediasession.ActionSeekBackward: seek(-1),
		mediasession.ActionSeekForward:  seek(1),
		mediasession.ActionSeekTo: func(d mediasession.ActionDetails) {
			s.Seek(d.SeekTime)
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-player/internal/app"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

type PlayParams struct {
	Files    []string `pos:"true" optional:"true" help:"Audio files to play. They replace the saved library."`
	Radio    bool     `short:"r" optional:"true" help:"Play internet radio instead of the library."`
	Station  int      `short:"s" optional:"true" help:"Station id to tune to; 0 keeps the saved station." default:"0"`
	API      string   `optional:"true" help:"Base URL of the station directory." default:""`
	Settings string   `optional:"true" help:"Settings file; defaults to the user config directory." default:""`
	Library  string   `optional:"true" help:"Library directory; defaults to the user config directory." default:""`
	Preset   string   `short:"e" optional:"true" help:"Equalizer preset to apply before playing." default:""`
	Viz      string   `optional:"true" help:"Visualization to select (bars, radial, spectrum, ...)." default:""`
	Buffer   int      `optional:"true" help:"Audio output buffer in milliseconds." default:"100"`
	Log      string   `optional:"true" help:"Write logs to this file." default:""`
	Verbose  bool     `short:"v" optional:"true" help:"Log debug records."`
}

func PlayCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Play files or radio in an interactive terminal player",
		Long:        "Plays the given files, the saved library, or internet radio. Space toggles playback, n/p skip, arrows seek, e cycles equalizer presets, v cycles visualizations and q quits.",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			if err := runPlay(params); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runPlay(p *PlayParams) error {
	logger, closeLog, err := newLogger(p.Log, p.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	session, store, err := openSession(p, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer session.Close()

	if err := configure(session.Settings(), p.Preset, p.Viz); err != nil {
		return err
	}

	start, err := starter(session, p)
	if err != nil {
		return err
	}

	if !isTerminal() {
		return runHeadless(session, start)
	}

	_, err = tea.NewProgram(newModel(session, start), tea.WithAltScreen()).Run()

	return err
}

func openSession(p *PlayParams, logger *slog.Logger) (*app.Session, *settings.FileStore, error) {
	settingsPath, libraryDir := p.Settings, p.Library

	var err error
	if settingsPath == "" {
		if settingsPath, err = configPath("settings.json"); err != nil {
			return nil, nil, err
		}
	}
	if libraryDir == "" {
		if libraryDir, err = configPath("library"); err != nil {
			return nil, nil, err
		}
	}

	store, err := settings.OpenFile(settingsPath, settings.WithFileLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithSettings(store),
		app.WithLibraryDir(libraryDir),
		app.WithAudioOutput(time.Duration(max(p.Buffer, 10)) * time.Millisecond),
	}
	if p.API != "" {
		opts = append(opts, app.WithStationsAPI(p.API))
	}

	session, err := app.New(opts...)
	if err != nil {
		store.Close()

		return nil, nil, err
	}

	return session, store, nil
}

// configure applies the command-line preset and visualization on top of
// the stored preferences.
func configure(prefs *settings.Store, preset, viz string) error {
	if preset != "" && !prefs.ApplyPreset(preset) {
		return fmt.Errorf("unknown equalizer preset %q", preset)
	}

	if viz != "" {
		t := visualizer.Type(viz)
		if viz == "none" {
			t = visualizer.TypeNone
		} else if !t.Valid() {
			return fmt.Errorf("unknown visualization %q", viz)
		}

		prefs.Update(func(s *settings.Snapshot) { s.Visualization = string(t) })
	}

	return nil
}

// starter returns the first playback action for the requested mode.
func starter(s *app.Session, p *PlayParams) (func(context.Context) error, error) {
	if p.Radio {
		if p.API == "" {
			return nil, errors.New("--radio needs --api")
		}

		return func(ctx context.Context) error {
			if err := s.RefreshStations(ctx, false); err != nil {
				return err
			}
			if p.Station > 0 {
				return s.PlayStation(ctx, p.Station)
			}

			return s.PlayActive(ctx)
		}, nil
	}

	if len(p.Files) > 0 {
		files, err := readTracks(p.Files)
		if err != nil {
			return nil, err
		}
		s.ReplaceLibrary(files)

		return func(ctx context.Context) error { return s.PlayTrack(ctx, 0) }, nil
	}

	if s.Library().Len() == 0 {
		return nil, errors.New("no files given and the library is empty")
	}

	return func(ctx context.Context) error {
		return s.PlayTrack(ctx, s.Library().ActiveIndex())
	}, nil
}

// runHeadless plays until interrupted, for pipes and service managers.
func runHeadless(s *app.Session, start func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := start(ctx); err != nil {
		return err
	}

	s.Logger().Info("playing", "title", s.MediaSession().Metadata().Title)
	<-ctx.Done()

	return nil
}

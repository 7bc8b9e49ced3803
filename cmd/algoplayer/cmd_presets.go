package main

import (
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-player/internal/audiograph"
	"github.com/cwbudde/algo-player/internal/equalizer"
)

// probeFrequencies are the columns of the response table.
var probeFrequencies = []float64{31.25, 125, 500, 2000, 8000, 16000}

type PresetsParams struct {
	SampleRate int `optional:"true" help:"Sample rate the responses are evaluated at." default:"48000"`
}

func PresetsCmd() *cobra.Command {
	return boa.CmdT[PresetsParams]{
		Use:         "presets",
		Short:       "Show the equalizer presets and their responses",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *PresetsParams, cmd *cobra.Command, args []string) {
			if err := runPresets(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "presets: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runPresets(p *PresetsParams, out io.Writer) error {
	sr := float64(p.SampleRate)
	if sr <= 0 {
		sr = float64(audiograph.DefaultSampleRate)
	}
	if probeFrequencies[len(probeFrequencies)-1] >= sr/2 {
		return fmt.Errorf("sample rate %v Hz is too low for the probe frequencies", sr)
	}

	header := table.Row{"Preset", "Bass", "Mid", "Treble"}
	for _, f := range probeFrequencies {
		header = append(header, formatHz(f))
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)

	for _, preset := range equalizer.Presets() {
		s := preset.Settings
		row := table.Row{preset.Name, formatBand(s.Bass), formatBand(s.Mid), formatBand(s.Treble)}
		row = append(row, lo.Map(s.ResponseDB(probeFrequencies, sr), func(db float64, _ int) any {
			return colorDB(db)
		})...)
		t.AppendRow(row)
	}

	t.Render()

	return nil
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%gk", f/1000)
	}

	return fmt.Sprintf("%g", f)
}

func formatBand(b equalizer.Band) string {
	return fmt.Sprintf("%+.0f dB @ %s", b.Gain, formatHz(b.Frequency))
}

func colorDB(db float64) string {
	s := fmt.Sprintf("%+.1f", db)
	switch {
	case db > 0.05:
		return text.FgGreen.Sprint(s)
	case db < -0.05:
		return text.FgRed.Sprint(s)
	default:
		return s
	}
}

// Command algoplayer plays local audio files and internet radio with a
// three-band equalizer and spectrum visualizations.
//
// Usage:
//
//	algoplayer play song.mp3 other.ogg
//	algoplayer play --radio --api https://radio.example.com
//	algoplayer render --viz circlewave --frames 120 song.wav
//	algoplayer stations --api https://radio.example.com
//	algoplayer presets
package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "algoplayer",
		Short:   "Audio and radio player with equalizer and visualizations",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			PlayCmd(),
			RenderCmd(),
			StationsCmd(),
			PresetsCmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}

	if v := bi.Main.Version; v != "" {
		return v
	}

	return "unknown-(no version)"
}

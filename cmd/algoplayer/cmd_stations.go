package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-player/internal/stations"
)

type StationsParams struct {
	API      string `pos:"true" help:"Base URL of the station directory."`
	Category string `short:"c" optional:"true" help:"Only list stations in this category." default:""`
	Timeout  int    `optional:"true" help:"Request timeout in seconds." default:"10"`
}

func StationsCmd() *cobra.Command {
	return boa.CmdT[StationsParams]{
		Use:         "stations",
		Short:       "List the stations of a radio directory",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *StationsParams, cmd *cobra.Command, args []string) {
			if err := runStations(cmd.Context(), params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "stations: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runStations(ctx context.Context, p *StationsParams, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(max(p.Timeout, 1))*time.Second)
	defer cancel()

	client := stations.NewClient(p.API)
	dir, err := client.Fetch(ctx)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(dir.Categories))
	for _, c := range dir.Categories {
		names[c.ID] = c.Name
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(termWidth())
	t.AppendHeader(table.Row{"ID", "Name", "Category", "Description"})

	shown := 0
	for _, st := range dir.Stations {
		if p.Category != "" && !strings.EqualFold(st.Category, p.Category) {
			continue
		}

		category := st.Category
		if name, ok := names[category]; ok {
			category = name
		}

		t.AppendRow(table.Row{st.ID, text.Bold.Sprint(st.Name), category, st.Description})
		shown++
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d", shown, dir.Total)})
	t.Render()

	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ManuGH/nostalgia/internal/library"
)

func runChannelsCLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return channelsCLI(ctx, args, os.Stdout, os.Stderr)
}

// channelsCLI rescans the library root and prints the channel table.
func channelsCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nostalgia channels", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := configPathFlag(fs)
	var export string
	fs.StringVar(&export, "export", "", "write the channel menu as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, ok := loadForCLI(*path, stderr)
	if !ok {
		return 1
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		fmt.Fprintf(stderr, "Data directory error: %v\n", err)
		return 1
	}

	store, err := library.NewStore(filepath.Join(cfg.DataDir, libraryDBName))
	if err != nil {
		fmt.Fprintf(stderr, "Library store error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	svc := library.NewService(cfg.Library.Root, store)
	res, err := svc.Scan(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Scan of %s failed: %v\n", cfg.Library.Root, err)
		return 1
	}
	channels, err := svc.Channels(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Listing channels failed: %v\n", err)
		return 1
	}

	var rows []table.Row
	for _, ch := range channels {
		items, err := svc.Items(ctx, ch.ID)
		if err != nil {
			fmt.Fprintf(stderr, "Listing items of %s failed: %v\n", ch.ID, err)
			return 1
		}
		var size int64
		for _, it := range items {
			size += it.SizeBytes
		}
		rows = append(rows, table.Row{ch.ID, ch.Label, strconv.Itoa(ch.ItemCount), humanize.Bytes(uint64(size)), ch.Dir})
	}
	fmt.Fprintln(stdout, renderChannelTable(rows))
	fmt.Fprintf(stdout, "%d channels, %d items, %d skipped (%s)\n",
		res.Channels, res.Items, res.Skipped, res.Finished.Sub(res.Started).Round(time.Millisecond))

	if export != "" {
		if err := svc.Export(ctx, export); err != nil {
			fmt.Fprintf(stderr, "Export failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "✓ menu written to %s\n", export)
	}
	return 0
}

func renderChannelTable(rows []table.Row) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Channel", "Items", "Size", "Dir"})
	tw.AppendRows(rows)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

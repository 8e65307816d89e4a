package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tturner/nxsync/internal/history"
	"github.com/tturner/nxsync/internal/progress"
	"github.com/tturner/nxsync/internal/ui"
)

// HistoryOptions configures RunHistory.
type HistoryOptions struct {
	ConfigPath string
	Limit      int
	JSON       bool
	CSV        bool
}

// RunHistory lists recorded transfers, newest first.
func RunHistory(opts HistoryOptions, out io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(opts.Limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if opts.CSV {
		return history.WriteCSV(out, records)
	}
	if opts.JSON {
		if records == nil {
			records = []history.Record{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.StartedAt.Local().Format(time.DateTime),
			rec.Direction,
			rec.Device,
			rec.LocalPath,
			rec.RemotePath,
			progress.FormatBytes(rec.Bytes),
			string(rec.State),
		})
	}
	fmt.Fprintln(out, ui.RenderTable([]string{"WHEN", "DIR", "DEVICE", "LOCAL", "REMOTE", "SIZE", "STATE"}, rows))
	return nil
}

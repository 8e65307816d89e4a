package history

// CSV export of ledger records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"id",
	"started_at",
	"direction",
	"device",
	"protocol",
	"local_path",
	"remote_path",
	"bytes",
	"duration_ms",
	"state",
	"md5",
	"error",
}

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.Direction,
			rec.Device,
			rec.Protocol,
			rec.LocalPath,
			rec.RemotePath,
			strconv.FormatInt(rec.Bytes, 10),
			strconv.FormatInt(rec.Duration.Milliseconds(), 10),
			string(rec.State),
			rec.MD5,
			rec.Error,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

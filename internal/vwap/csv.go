package vwap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var csvHeader = []string{"date", "vwap_price_usd", "volume_cngn", "volume_usd"}

// WriteCSV emits the series with the price at 8 decimal places and volumes
// at 6.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dateLayout),
			r.Price.StringFixed(8),
			r.TokenVolume.StringFixed(6),
			r.UsdVolume.StringFixed(6),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the series to path, creating parent directories.
func WriteCSVFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return err
	}
	return f.Sync()
}

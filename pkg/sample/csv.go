package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"time (ms)", "absorbance"}

// WriteCSV writes samples as CSV with times in milliseconds and absorbance
// with three decimals, the precision the device reports.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, 2)
	for _, s := range samples {
		row[0] = strconv.FormatInt(s.Time.Milliseconds(), 10)
		row[1] = strconv.FormatFloat(s.Absorbance, 'f', 3, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Save writes samples to a CSV file.
func Save(filename string, samples []Sample) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}

	if err := WriteCSV(f, samples); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	return nil
}

package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ExchangeSim/internal/model"
)

var csvHeader = []string{"date", "symbol", "open", "high", "low", "close", "volume"}

// WriteCSV writes the series as one row per bar. Floats are written with full
// precision so a reload reproduces the series exactly.
func (s *Series) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(csvHeader))
	for _, b := range s.bars {
		record[0] = b.Date.Format(model.DateLayout)
		record[1] = b.Symbol
		record[2] = formatFloat(b.Open)
		record[3] = formatFloat(b.High)
		record[4] = formatFloat(b.Low)
		record[5] = formatFloat(b.Close)
		record[6] = strconv.FormatInt(b.Volume, 10)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a series written by WriteCSV. Any malformed row fails the
// whole read.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	s := New()
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		bar, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := s.Append(bar); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return s, nil
}

// SaveCSV writes the series to path, creating parent directories.
func (s *Series) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := s.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// LoadCSV reads a series from path.
func LoadCSV(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvHeader {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseRecord(record []string, cols map[string]int) (model.DailyBar, error) {
	var bar model.DailyBar

	date, err := time.Parse(model.DateLayout, record[cols["date"]])
	if err != nil {
		return bar, fmt.Errorf("parse date: %w", err)
	}
	bar.Date = date
	bar.Symbol = record[cols["symbol"]]
	if bar.Symbol == "" {
		return bar, errors.New("empty symbol")
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(record[cols[f.name]], 64)
		if err != nil {
			return bar, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	vol, err := strconv.ParseInt(record[cols["volume"]], 10, 64)
	if err != nil {
		// older exports wrote volume as a float
		fv, ferr := strconv.ParseFloat(record[cols["volume"]], 64)
		if ferr != nil {
			return bar, fmt.Errorf("parse volume: %w", err)
		}
		vol = int64(fv)
	}
	bar.Volume = vol
	return bar, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

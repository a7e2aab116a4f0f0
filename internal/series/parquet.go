package series

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ExchangeSim/internal/model"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes the series to w as Snappy-compressed Parquet.
func (s *Series) WriteParquet(w io.Writer) error {
	writerConfig := []parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(64 * 1024),
	}
	pw := parquet.NewGenericWriter[model.DailyBar](w, writerConfig...)
	if _, err := pw.Write(s.bars); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// SaveParquet writes the series to path through a temporary file, so a failed
// write leaves any previous file in place.
func (s *Series) SaveParquet(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	if err := s.WriteParquet(f); err != nil {
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

// LoadParquet reads a series written by SaveParquet.
func LoadParquet(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr := parquet.NewGenericReader[model.DailyBar](f)
	defer pr.Close()

	bars := make([]model.DailyBar, 0, pr.NumRows())
	buf := make([]model.DailyBar, 1024)
	for {
		n, err := pr.Read(buf)
		bars = append(bars, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	for i := range bars {
		bars[i].Date = bars[i].Date.UTC()
	}
	return FromBars(bars)
}

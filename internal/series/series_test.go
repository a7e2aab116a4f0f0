package series

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ExchangeSim/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, sym string, close float64) model.DailyBar {
	return model.DailyBar{
		Date:   day(d),
		Symbol: sym,
		Open:   close * 0.99,
		High:   close * 1.02,
		Low:    close * 0.97,
		Close:  close,
		Volume: int64(close * 100),
	}
}

func sample(t *testing.T) *Series {
	t.Helper()
	s, err := FromBars([]model.DailyBar{
		bar(1, "AAA", 100), bar(1, "BBB", 50),
		bar(2, "AAA", 101.123456789), bar(2, "BBB", 49),
		bar(3, "AAA", 99), bar(3, "BBB", 52),
		bar(8, "AAA", 104), bar(8, "BBB", 53),
	})
	require.NoError(t, err)
	return s
}

func TestAppendRejectsDuplicatesAtomically(t *testing.T) {
	s := sample(t)

	err := s.Append(bar(9, "AAA", 1), bar(3, "BBB", 2))
	require.ErrorIs(t, err, ErrDuplicateBar)
	assert.Equal(t, 8, s.Len())
	_, ok := s.Get(day(9), "AAA")
	assert.False(t, ok)

	err = s.Append(bar(9, "AAA", 1), bar(9, "AAA", 2))
	require.ErrorIs(t, err, ErrDuplicateBar)
	assert.Equal(t, 8, s.Len())
}

func TestAppendNormalisesDates(t *testing.T) {
	s := New()
	b := bar(1, "AAA", 10)
	b.Date = time.Date(2024, time.January, 5, 14, 30, 0, 0, time.UTC)
	require.NoError(t, s.Append(b))

	got, ok := s.Get(day(5), "AAA")
	require.True(t, ok)
	assert.Equal(t, day(5), got.Date)
	assert.True(t, s.Has(time.Date(2024, time.January, 5, 23, 0, 0, 0, time.UTC)))
}

func TestAccessors(t *testing.T) {
	s := sample(t)

	aaa := s.ByCompany("AAA")
	require.Len(t, aaa, 4)
	assert.Equal(t, 104.0, aaa[3].Close)

	onDay2 := s.ByDate(day(2))
	require.Len(t, onDay2, 2)
	assert.Equal(t, "AAA", onDay2[0].Symbol)
	assert.Equal(t, "BBB", onDay2[1].Symbol)

	assert.Equal(t, []time.Time{day(1), day(2), day(3), day(8)}, s.Dates())
	assert.Equal(t, []string{"AAA", "BBB"}, s.Symbols())

	latest, ok := s.LatestDate()
	require.True(t, ok)
	assert.Equal(t, day(8), latest)

	last, ok := s.LastBar("BBB")
	require.True(t, ok)
	assert.Equal(t, 53.0, last.Close)

	_, ok = s.LastBar("ZZZ")
	assert.False(t, ok)
	_, ok = New().LatestDate()
	assert.False(t, ok)

	bars := s.Bars()
	bars[0].Close = -1
	first, _ := s.Get(day(1), "AAA")
	assert.Equal(t, 100.0, first.Close)
}

func TestWeekly(t *testing.T) {
	s := sample(t)

	weekly := s.Weekly("AAA")
	require.Len(t, weekly, 2)

	first := weekly[0]
	assert.Equal(t, day(1), first.Date)
	assert.InDelta(t, 99.0, first.Open, 1e-9)
	assert.Equal(t, 99.0, first.Close)
	assert.InDelta(t, 101.123456789*1.02, first.High, 1e-9)
	assert.InDelta(t, 99*0.97, first.Low, 1e-9)
	assert.Equal(t, int64(10000+10112+9900), first.Volume)

	assert.Equal(t, day(8), weekly[1].Date)
	assert.Nil(t, AggregateWeekly(nil))
}

func TestCSVRoundTripIsLossless(t *testing.T) {
	s := sample(t)

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "date,symbol,open,high,low,close,volume\n2024-01-01,AAA,"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), got.Bars())
}

func TestReadCSVRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"missing column": "date,symbol,open,high,low,close\n2024-01-01,AAA,1,1,1,1\n",
		"bad date":       "date,symbol,open,high,low,close,volume\n01/02/2024,AAA,1,1,1,1,1\n",
		"bad price":      "date,symbol,open,high,low,close,volume\n2024-01-01,AAA,x,1,1,1,1\n",
		"empty symbol":   "date,symbol,open,high,low,close,volume\n2024-01-01,,1,1,1,1,1\n",
		"duplicate":      "date,symbol,open,high,low,close,volume\n2024-01-01,AAA,1,1,1,1,1\n2024-01-01,AAA,1,1,1,1,1\n",
		"short row":      "date,symbol,open,high,low,close,volume\n2024-01-01,AAA,1\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestReadCSVAcceptsFloatVolumeAndEmptyInput(t *testing.T) {
	s, err := ReadCSV(strings.NewReader("date,symbol,open,high,low,close,volume\n2024-01-01,AAA,1,2,0.5,1.5,1200.0\n"))
	require.NoError(t, err)
	b, ok := s.Get(day(1), "AAA")
	require.True(t, ok)
	assert.Equal(t, int64(1200), b.Volume)

	empty, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSaveLoadFiles(t *testing.T) {
	s := sample(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "historical", "stock_data.csv")
	require.NoError(t, s.SaveCSV(csvPath))
	fromCSV, err := LoadCSV(csvPath)
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), fromCSV.Bars())

	pqPath := filepath.Join(dir, "export", "stock_data.parquet")
	require.NoError(t, s.SaveParquet(pqPath))
	fromParquet, err := LoadParquet(pqPath)
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), fromParquet.Bars())

	_, err = LoadCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestSaveParquetReplacesThroughTempFile(t *testing.T) {
	s := sample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "stock_data.parquet")

	require.NoError(t, s.SaveParquet(path))
	require.NoError(t, s.SaveParquet(path))
	_, err := os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
	again, err := LoadParquet(path)
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), again.Bars())

	// a non-empty directory cannot be replaced by the rename
	blocked := filepath.Join(dir, "blocked.parquet")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))
	assert.Error(t, s.SaveParquet(blocked))
	_, err = os.Stat(blocked + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
	info, err := os.Stat(blocked)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(t).WriteParquet(&buf))
	assert.Equal(t, "PAR1", buf.String()[:4])
}

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"fnirs-sqi/internal/sqi"
)

// ReadCSVFile decodes channels from a CSV file. See ReadCSV.
func ReadCSVFile(path string, sampleRate float64) ([]sqi.Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	channels, err := ReadCSV(f, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}
	return channels, nil
}

// ReadCSV decodes channels from a CSV table with one column per channel. A
// first row containing any non-numeric cell is taken as channel names. A
// column of timestamps in seconds is recognized either by a time-like header
// name or, when no header and no sample rate are given, as the first column;
// the sample rate then derives from the median timestamp step. An explicit
// sampleRate > 0 always wins over derivation.
func ReadCSV(r io.Reader, sampleRate float64) ([]sqi.Channel, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("no rows")
	}

	hasHeader := false
	for _, cell := range records[0] {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
			hasHeader = true
			break
		}
	}

	names := records[0]
	rows := records
	if hasHeader {
		rows = records[1:]
	}
	if len(rows) == 0 {
		return nil, errors.New("no data rows")
	}
	columns := len(rows[0])

	timeColumn := -1
	switch {
	case hasHeader && isTimeLabel(names[0]):
		timeColumn = 0
	case !hasHeader && sampleRate <= 0:
		timeColumn = 0
	}
	if timeColumn < 0 && sampleRate <= 0 {
		return nil, errors.New("sample rate required when no time column is present")
	}
	if timeColumn == 0 && columns < 2 {
		return nil, errors.New("no channel columns next to the time column")
	}

	parsed := make([][]float64, columns)
	for c := range parsed {
		parsed[c] = make([]float64, len(rows))
	}
	for i, row := range rows {
		for c, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				line := i + 1
				if hasHeader {
					line++
				}
				return nil, fmt.Errorf("row %d column %d: %w", line, c+1, err)
			}
			parsed[c][i] = v
		}
	}

	rate := sampleRate
	if rate <= 0 {
		rate, err = rateFromTimestamps(parsed[timeColumn])
		if err != nil {
			return nil, err
		}
	}

	channels := make([]sqi.Channel, 0, columns)
	for c := 0; c < columns; c++ {
		if c == timeColumn {
			continue
		}
		id := ""
		if hasHeader {
			id = strings.TrimSpace(names[c])
		}
		if id == "" {
			id = fmt.Sprintf("ch%d", len(channels)+1)
		}
		channels = append(channels, sqi.Channel{
			ID:         id,
			SampleRate: rate,
			Samples:    parsed[c],
		})
	}
	return channels, nil
}

// rateFromTimestamps derives the sample rate from a strictly increasing
// seconds column. The median step is used so a few jittered timestamps do not
// skew the rate.
func rateFromTimestamps(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, errors.New("need at least two samples to derive the sample rate")
	}
	steps := make([]float64, len(times)-1)
	for i := range steps {
		step := times[i+1] - times[i]
		if step <= 0 {
			return 0, fmt.Errorf("time column must be strictly increasing (row %d)", i+2)
		}
		steps[i] = step
	}
	sort.Float64s(steps)
	mid := len(steps) / 2
	median := steps[mid]
	if len(steps)%2 == 0 {
		median = (steps[mid-1] + steps[mid]) / 2
	}
	return 1 / median, nil
}

func isTimeLabel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time", "t", "timestamp", "seconds", "sec":
		return true
	}
	return false
}

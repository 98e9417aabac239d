package ingest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnirs-sqi/internal/sqi"
)

func pulseSamples(n int, fs, freq float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return s
}

func fnirsSignal(label string, samplesPerRecord int) edf.SignalHeader {
	return edf.SignalHeader{
		Label:             label,
		TransducerType:    "fNIRS optode",
		PhysicalDimension: "OD",
		PhysicalMin:       -2,
		PhysicalMax:       2,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  samplesPerRecord,
	}
}

// writeTestEDF writes a two-signal recording: 20 one-second records with a
// 1.2 Hz pulse at 10 Hz and a slow wave at 5 Hz.
func writeTestEDF(t *testing.T) (path string, hbo, hbr []float64) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "recording.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Subject 07",
		RecordingID:        "resting state",
		StartTime:          time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        2,
		Signals: []edf.SignalHeader{
			fnirsSignal("S1-D1 HbO", 10),
			fnirsSignal("S1-D2 HbR", 5),
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	hbo = pulseSamples(200, 10, 1.2)
	hbr = pulseSamples(100, 5, 0.3)
	for rec := 0; rec < 20; rec++ {
		err := ew.WriteRecord([][]float64{
			hbo[rec*10 : (rec+1)*10],
			hbr[rec*5 : (rec+1)*5],
		})
		require.NoError(t, err)
	}
	require.NoError(t, ew.Close())
	require.NoError(t, f.Close())
	return path, hbo, hbr
}

func TestReadEDFFile_round_trip(t *testing.T) {
	path, hbo, hbr := writeTestEDF(t)

	channels, err := ReadEDFFile(path)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	assert.Equal(t, "S1-D1 HbO", channels[0].ID)
	assert.Equal(t, 10.0, channels[0].SampleRate)
	require.Len(t, channels[0].Samples, 200)
	for i, want := range hbo {
		require.InDelta(t, want, channels[0].Samples[i], 1e-3, "HbO sample %d", i)
	}

	assert.Equal(t, "S1-D2 HbR", channels[1].ID)
	assert.Equal(t, 5.0, channels[1].SampleRate)
	require.Len(t, channels[1].Samples, 100)
	for i, want := range hbr {
		require.InDelta(t, want, channels[1].Samples[i], 1e-3, "HbR sample %d", i)
	}
}

func TestReadEDFFile_channels_score_end_to_end(t *testing.T) {
	path, _, _ := writeTestEDF(t)

	channels, err := ReadEDFFile(path)
	require.NoError(t, err)

	res, err := sqi.ScoreChannels(context.Background(), channels[:1], sqi.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, res.Channels[0].Err)

	// 16-bit quantization must not cost the clean pulse its top score.
	assert.Equal(t, sqi.ScoreVeryHigh, res.Channels[0].Aggregate)
}

func TestReadEDF_skips_annotation_signal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Subject 08",
		RecordingID:        "with annotations",
		StartTime:          time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        2,
		Signals: []edf.SignalHeader{
			fnirsSignal("S1-D1 HbO", 10),
			fnirsSignal("EDF Annotations", 10),
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)
	record := pulseSamples(10, 10, 1.2)
	require.NoError(t, ew.WriteRecord([][]float64{record, make([]float64, 10)}))
	require.NoError(t, ew.Close())
	require.NoError(t, f.Close())

	channels, err := ReadEDFFile(path)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "S1-D1 HbO", channels[0].ID)
}

func TestReadEDF_rejects_unfinalized_recording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Subject 09",
		RecordingID:        "interrupted",
		StartTime:          time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals:            []edf.SignalHeader{fnirsSignal("S1-D1 HbO", 10)},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)
	require.NoError(t, ew.WriteRecord([][]float64{pulseSamples(10, 10, 1.2)}))
	// No Close: the header keeps its unknown record count.
	require.NoError(t, f.Close())

	_, err = ReadEDFFile(path)
	require.ErrorContains(t, err, "not finalized")
}

// Package ingest decodes fNIRS recordings from EDF/EDF+ files and CSV tables
// into channels ready for scoring.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/edf"

	"fnirs-sqi/internal/sqi"
)

// annotationLabel marks the EDF+ timekeeping signal, which carries no samples
// worth scoring.
const annotationLabel = "EDF Annotations"

type edfSignalMeta struct {
	label            string
	samplesPerRecord int
}

type edfMeta struct {
	dataRecords   int
	recordSeconds float64
	signals       []edfSignalMeta
}

// ReadEDFFile decodes every signal of an EDF/EDF+ recording into channels.
func ReadEDFFile(path string) ([]sqi.Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edf: %w", err)
	}
	defer f.Close()

	channels, err := ReadEDF(f)
	if err != nil {
		return nil, fmt.Errorf("edf %s: %w", path, err)
	}
	return channels, nil
}

// ReadEDF decodes all signals from an EDF/EDF+ recording. Each signal's
// sample rate derives from its samples-per-record count and the record
// duration; samples are returned in calibrated physical units. EDF+
// annotation signals are skipped.
func ReadEDF(r io.ReadSeeker) ([]sqi.Channel, error) {
	meta, err := readEDFMeta(r)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind edf: %w", err)
	}
	rd, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open edf: %w", err)
	}

	channels := make([]sqi.Channel, 0, len(meta.signals))
	for i, sig := range meta.signals {
		if sig.label == annotationLabel {
			continue
		}

		sr, err := rd.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}

		samples := make([]float64, sig.samplesPerRecord*meta.dataRecords)
		n, err := sr.Read(samples)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("signal %q: %w", sig.label, err)
		}

		channels = append(channels, sqi.Channel{
			ID:         sig.label,
			SampleRate: float64(sig.samplesPerRecord) / meta.recordSeconds,
			Samples:    samples[:n],
		})
	}
	return channels, nil
}

// readEDFMeta parses the parts of the EDF header the scoring pipeline needs:
// per-signal labels and sample counts, the record duration and the record
// count. The header is plain ASCII at fixed offsets.
func readEDFMeta(r io.Reader) (*edfMeta, error) {
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("read edf header: %w", err)
	}

	dataRecords, err := strconv.Atoi(headerField(fixed[236:244]))
	if err != nil {
		return nil, fmt.Errorf("parse edf data record count: %w", err)
	}
	if dataRecords < 0 {
		return nil, errors.New("edf recording was not finalized: data record count unknown")
	}

	recordSeconds, err := strconv.ParseFloat(headerField(fixed[244:252]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse edf record duration: %w", err)
	}
	if recordSeconds <= 0 {
		return nil, errors.New("edf record duration must be positive")
	}

	signalCount, err := strconv.Atoi(headerField(fixed[252:256]))
	if err != nil {
		return nil, fmt.Errorf("parse edf signal count: %w", err)
	}
	if signalCount <= 0 {
		return nil, errors.New("edf recording has no signals")
	}

	// The signal header region is a struct-of-arrays: all labels (16 bytes
	// each), then all transducer types (80), dimensions (8), physical and
	// digital ranges (4 x 8), prefiltering notes (80), samples-per-record
	// (8) and reserved bytes (32).
	rest := make([]byte, signalCount*256)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("read edf signal headers: %w", err)
	}

	meta := &edfMeta{
		dataRecords:   dataRecords,
		recordSeconds: recordSeconds,
		signals:       make([]edfSignalMeta, signalCount),
	}
	samplesOffset := signalCount * 216
	for i := range meta.signals {
		label := headerField(rest[i*16 : (i+1)*16])
		if label == "" {
			label = fmt.Sprintf("signal-%d", i+1)
		}
		spr, err := strconv.Atoi(headerField(rest[samplesOffset+i*8 : samplesOffset+(i+1)*8]))
		if err != nil {
			return nil, fmt.Errorf("parse samples per record of signal %d: %w", i, err)
		}
		if spr <= 0 {
			return nil, fmt.Errorf("signal %d has no samples per record", i)
		}
		meta.signals[i] = edfSignalMeta{label: label, samplesPerRecord: spr}
	}
	return meta, nil
}

func headerField(b []byte) string {
	return strings.TrimSpace(string(b))
}

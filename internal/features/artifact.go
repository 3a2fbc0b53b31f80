package features

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"updown-dataset/internal/storage"
)

const (
	featuresFile = "features.bin"
	labelsFile   = "labels.bin"
	manifestFile = "manifest.json"
)

// SampleRef locates one sample inside the binary artifacts.
type SampleRef struct {
	Ticker         string `json:"ticker"`
	PredictionDate string `json:"prediction_date"`
}

// Manifest describes the binary tensor files well enough for a training
// job to load them without guessing shapes or byte order.
type Manifest struct {
	CreatedAt      time.Time   `json:"created_at"`
	Samples        int         `json:"samples"`
	SequenceLength int         `json:"sequence_length"`
	FeatureColumns []string    `json:"feature_columns"`
	DType          string      `json:"dtype"`
	ByteOrder      string      `json:"byte_order"`
	FeaturesFile   string      `json:"features_file"`
	LabelsFile     string      `json:"labels_file"`
	SamplesIndex   []SampleRef `json:"samples_index"`
}

// WriteDatasetDir persists samples as a flat little-endian float32 tensor
// file plus one label byte per sample, described by a JSON manifest.
func WriteDatasetDir(dir string, samples []Sample, length int) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create dataset dir: %w", err)
	}

	manifest := Manifest{
		CreatedAt:      time.Now().UTC(),
		Samples:        len(samples),
		SequenceLength: length,
		FeatureColumns: FeatureColumns[:],
		DType:          "float32",
		ByteOrder:      "little-endian",
		FeaturesFile:   featuresFile,
		LabelsFile:     labelsFile,
		SamplesIndex:   make([]SampleRef, 0, len(samples)),
	}

	features := make([]byte, 0, len(samples)*length*NumFeatures*4)
	labels := make([]byte, 0, len(samples))
	var scratch [4]byte
	for _, sample := range samples {
		if len(sample.Tensor) != length {
			return Manifest{}, fmt.Errorf("sample %s %s has %d rows, want %d",
				sample.Ticker, sample.Date.Format(storage.DayFormat), len(sample.Tensor), length)
		}
		for _, row := range sample.Tensor {
			if len(row) != NumFeatures {
				return Manifest{}, fmt.Errorf("sample %s %s has a row of width %d, want %d",
					sample.Ticker, sample.Date.Format(storage.DayFormat), len(row), NumFeatures)
			}
			for _, v := range row {
				binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(float32(v)))
				features = append(features, scratch[:]...)
			}
		}
		labels = append(labels, byte(sample.Label))
		manifest.SamplesIndex = append(manifest.SamplesIndex, SampleRef{
			Ticker:         sample.Ticker,
			PredictionDate: sample.Date.Format(storage.DayFormat),
		})
	}

	if err := os.WriteFile(filepath.Join(dir, featuresFile), features, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write features: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, labelsFile), labels, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write labels: %w", err)
	}
	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), append(encoded, '\n'), 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

// LoadDataset reads a dataset directory back into samples. Training jobs
// normally read the binaries directly; this loader exists to verify round
// trips and to inspect small datasets.
func LoadDataset(dir string) (Manifest, []Sample, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(manifest.SamplesIndex) != manifest.Samples {
		return Manifest{}, nil, fmt.Errorf("manifest lists %d sample refs for %d samples",
			len(manifest.SamplesIndex), manifest.Samples)
	}

	features, err := os.ReadFile(filepath.Join(dir, manifest.FeaturesFile))
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("read features: %w", err)
	}
	labels, err := os.ReadFile(filepath.Join(dir, manifest.LabelsFile))
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("read labels: %w", err)
	}

	width := len(manifest.FeatureColumns)
	if want := manifest.Samples * manifest.SequenceLength * width * 4; len(features) != want {
		return Manifest{}, nil, fmt.Errorf("features file is %d bytes, want %d", len(features), want)
	}
	if len(labels) != manifest.Samples {
		return Manifest{}, nil, fmt.Errorf("labels file holds %d entries, want %d", len(labels), manifest.Samples)
	}

	samples := make([]Sample, manifest.Samples)
	off := 0
	for i := range samples {
		ref := manifest.SamplesIndex[i]
		date, err := time.Parse(storage.DayFormat, ref.PredictionDate)
		if err != nil {
			return Manifest{}, nil, fmt.Errorf("parse sample date %q: %w", ref.PredictionDate, err)
		}
		tensor := make([][]float64, manifest.SequenceLength)
		for r := range tensor {
			row := make([]float64, width)
			for c := range row {
				bits := binary.LittleEndian.Uint32(features[off : off+4])
				row[c] = float64(math.Float32frombits(bits))
				off += 4
			}
			tensor[r] = row
		}
		samples[i] = Sample{
			Ticker: ref.Ticker,
			Date:   storage.Day(date),
			Label:  int(labels[i]),
			Tensor: tensor,
		}
	}
	return manifest, samples, nil
}

package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	cerrors "github.com/tierline/elan/core/errors"
)

// writeWAV builds a minimal PCM WAV file for tests.
func writeWAV(t *testing.T, channels, sampleRate, bitsPerSample int, samples []int16) string {
	t.Helper()

	var data bytes.Buffer
	if bitsPerSample == 16 {
		if err := binary.Write(&data, binary.LittleEndian, samples); err != nil {
			t.Fatalf("building samples: %v", err)
		}
	} else {
		data.Write(make([]byte, len(samples)*bitsPerSample/8))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}
	return path
}

func rampSamples(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	return samples
}

func TestReadInfo(t *testing.T) {
	path := writeWAV(t, 1, 8000, 16, rampSamples(8000))

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	want := Info{Channels: 1, SampleRate: 8000, SampleWidth: 2, Frames: 8000}
	if info != want {
		t.Errorf("Info = %+v, want %+v", info, want)
	}
	if info.Duration() != time.Second {
		t.Errorf("Duration = %v, want 1s", info.Duration())
	}
}

func TestSamples(t *testing.T) {
	path := writeWAV(t, 1, 8000, 16, rampSamples(8000))

	err := WithReader(path, func(r *Reader) error {
		samples, err := r.Samples(0, 500)
		if err != nil {
			t.Fatalf("Samples: %v", err)
		}
		if len(samples) != 4000 {
			t.Fatalf("len = %d, want 4000", len(samples))
		}
		if samples[0] != 0 || samples[999] != 999 || samples[1000] != 0 {
			t.Errorf("sample values do not match the written ramp")
		}

		// Intervals past the end clamp to the stream length.
		tail, err := r.Samples(900, 5000)
		if err != nil {
			t.Fatalf("Samples tail: %v", err)
		}
		if len(tail) != 800 {
			t.Errorf("tail len = %d, want 800", len(tail))
		}

		if _, err := r.Samples(100, 100); !errors.Is(err, cerrors.ErrInvalidInput) {
			t.Errorf("empty interval: want ErrInvalidInput, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithReader: %v", err)
	}
}

func TestSamplesUnsupportedWidth(t *testing.T) {
	path := writeWAV(t, 1, 8000, 8, make([]int16, 100))

	err := WithReader(path, func(r *Reader) error {
		_, err := r.Samples(0, 10)
		return err
	})
	if !errors.Is(err, cerrors.ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestNotAWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(path, []byte("this is not a wave file"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := ReadInfo(path)
	if !errors.Is(err, cerrors.ErrFormat) {
		t.Errorf("want ErrFormat, got %v", err)
	}
}

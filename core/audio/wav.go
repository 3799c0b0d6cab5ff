// Package audio reads the linked media of annotation documents. Only
// RIFF/WAVE files with integer PCM data are supported; that is what
// annotation tools record and what the time model (milliseconds against
// one recording) assumes.
package audio

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	cerrors "github.com/tierline/elan/core/errors"
)

// Info describes the PCM stream of a WAV file.
type Info struct {
	Channels    int
	SampleRate  int
	SampleWidth int // bytes per sample per channel
	Frames      int
}

// Duration returns the play time of the stream.
func (i Info) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(i.Frames) * time.Second / time.Duration(i.SampleRate)
}

// Reader reads PCM frames out of an open WAV file. It is only valid
// inside the WithReader callback that produced it.
type Reader struct {
	f        *os.File
	path     string
	info     Info
	dataPos  int64
	dataSize int64
}

// WithReader opens a WAV file, hands a Reader to fn, and closes the file
// when fn returns. The file handle never outlives the callback.
func WithReader(path string, fn func(*Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return cerrors.NewIO("open", path, err)
	}
	defer f.Close()

	reader, err := newReader(f, path)
	if err != nil {
		return err
	}
	return fn(reader)
}

// ReadInfo reads just the stream description of a WAV file.
func ReadInfo(path string) (Info, error) {
	var info Info
	err := WithReader(path, func(r *Reader) error {
		info = r.Info()
		return nil
	})
	return info, err
}

// Info returns the stream description.
func (r *Reader) Info() Info {
	return r.info
}

// Samples reads the PCM samples covering [startMs, endMs) as interleaved
// 16-bit values. Only 16-bit streams support this view; other widths
// return ErrUnsupported.
func (r *Reader) Samples(startMs, endMs int) ([]int16, error) {
	if r.info.SampleWidth != 2 {
		return nil, cerrors.Wrapf(cerrors.ErrUnsupported,
			"%d-byte samples cannot be read as int16", r.info.SampleWidth)
	}
	if startMs < 0 || endMs <= startMs {
		return nil, cerrors.NewValidation("interval", "need 0 <= start < end")
	}

	frameSize := int64(r.info.Channels * r.info.SampleWidth)
	startFrame := int64(startMs) * int64(r.info.SampleRate) / 1000
	endFrame := int64(endMs) * int64(r.info.SampleRate) / 1000
	if endFrame > int64(r.info.Frames) {
		endFrame = int64(r.info.Frames)
	}
	if startFrame >= endFrame {
		return nil, nil
	}

	if _, err := r.f.Seek(r.dataPos+startFrame*frameSize, io.SeekStart); err != nil {
		return nil, cerrors.NewIO("seek", r.path, err)
	}

	samples := make([]int16, (endFrame-startFrame)*int64(r.info.Channels))
	if err := binary.Read(r.f, binary.LittleEndian, samples); err != nil {
		return nil, cerrors.NewIO("read", r.path, err)
	}
	return samples, nil
}

// newReader parses the RIFF container up to the data chunk. Chunks other
// than "fmt " and "data" are skipped; chunk sizes are padded to even
// offsets per the RIFF rules.
func newReader(f *os.File, path string) (*Reader, error) {
	var header [12]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, cerrors.NewFormat("WAV", path, "file too short for a RIFF header")
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, cerrors.NewFormat("WAV", path, "not a RIFF/WAVE file")
	}

	r := &Reader{f: f, path: path}
	haveFmt := false

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, cerrors.NewIO("read", path, err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if err := r.parseFmt(f, size, path); err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, cerrors.NewIO("seek", path, err)
			}
			r.dataPos = pos
			r.dataSize = size
		}

		if id == "data" {
			break
		}
		skip := size + size%2
		if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
			return nil, cerrors.NewIO("seek", path, err)
		}
	}

	if !haveFmt {
		return nil, cerrors.NewFormat("WAV", path, "missing fmt chunk")
	}
	if r.dataPos == 0 {
		return nil, cerrors.NewFormat("WAV", path, "missing data chunk")
	}

	frameSize := int64(r.info.Channels * r.info.SampleWidth)
	if frameSize > 0 {
		r.info.Frames = int(r.dataSize / frameSize)
	}
	return r, nil
}

func (r *Reader) parseFmt(f *os.File, size int64, path string) error {
	if size < 16 {
		return cerrors.NewFormat("WAV", path, "fmt chunk too short")
	}

	var fields struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if err := binary.Read(f, binary.LittleEndian, &fields); err != nil {
		return cerrors.NewFormat("WAV", path, "truncated fmt chunk")
	}
	// Rewind so the chunk skip in the caller stays size-relative.
	if _, err := f.Seek(-16, io.SeekCurrent); err != nil {
		return cerrors.NewIO("seek", path, err)
	}

	// 1 is integer PCM, 0xFFFE is the extensible wrapper around it.
	if fields.AudioFormat != 1 && fields.AudioFormat != 0xFFFE {
		return cerrors.Wrapf(cerrors.ErrUnsupported, "audio format %d", fields.AudioFormat)
	}
	if fields.Channels == 0 || fields.SampleRate == 0 || fields.BitsPerSample%8 != 0 {
		return cerrors.NewFormat("WAV", path, "inconsistent fmt chunk")
	}

	r.info = Info{
		Channels:    int(fields.Channels),
		SampleRate:  int(fields.SampleRate),
		SampleWidth: int(fields.BitsPerSample) / 8,
	}
	return nil
}

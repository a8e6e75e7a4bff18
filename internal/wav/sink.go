// Package wav implements a time-sliced WAV file sink fed by decoded ADPCM
// audio: one file per rotation window, one fresh decoder per file.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/marisusis/sdr-scraper/internal/adpcm"
)

// RotationInterval bounds how long a single WAV file stays open.
const RotationInterval = 30 * time.Minute

// Sink owns at most one open file at a time, closing it after a write once
// it has been open longer than RotationInterval, and decoding ADPCM payloads
// with a decoder bound 1:1 to the current file.
type Sink struct {
	name       string
	dir        string
	sampleRate uint32
	file       *os.File
	header     *header
	decoder    *adpcm.Decoder
	opened     time.Time
	dataSize   uint32
	rotations  atomic.Uint64

	// now is overridable in tests to avoid depending on wall-clock rotation.
	now func() time.Time
}

// New creates a sink that will write files named "{name}_{timestamp}.wav"
// under dir. The sink does not open a file until the first WriteSamples call.
func New(name, dir string) *Sink {
	return &Sink{
		name:       name,
		dir:        dir,
		sampleRate: 12000,
		decoder:    adpcm.New(),
		now:        time.Now,
	}
}

// SetSampleRate affects only the next file opened, not the one currently
// in-flight.
func (s *Sink) SetSampleRate(rate uint32) {
	s.sampleRate = rate
}

func (s *Sink) open() error {
	ts := s.now().UTC().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.wav", s.name, ts)
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: create %s: %w", path, err)
	}

	h := &header{sampleRate: s.sampleRate, numChannels: 1, bitsPerSample: 16}
	if err := h.write(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("wav: write header: %w", err)
	}

	s.file = f
	s.header = h
	s.decoder = adpcm.New()
	s.opened = s.now()
	s.dataSize = 0
	return nil
}

// WriteSamples decodes payload (packed ADPCM nibbles) and appends the
// resulting PCM samples to the currently open file, opening one first if
// necessary. Any I/O error closes the in-flight file and is returned; the
// next call opens a new file.
func (s *Sink) WriteSamples(payload []byte) error {
	if s.file == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	samples := s.decoder.Decode(payload)
	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}

	if _, err := s.file.Write(buf); err != nil {
		s.closeFailed()
		return fmt.Errorf("wav: write samples: %w", err)
	}
	s.dataSize += uint32(len(buf))

	if s.now().Sub(s.opened) > RotationInterval {
		err := s.Close()
		if err == nil {
			s.rotations.Add(1)
		}
		return err
	}
	return nil
}

// Rotations returns the number of times this sink has closed a file to
// start a new one due to RotationInterval elapsing. It does not count the
// final Close on shutdown.
func (s *Sink) Rotations() uint64 {
	return s.rotations.Load()
}

// Close finalizes the RIFF header with the true data size and drops the
// file handle. Idempotent: closing an already-closed sink is a no-op.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}

	f := s.file
	s.file = nil

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("wav: seek: %w", err)
	}
	if err := s.header.write(f, s.dataSize); err != nil {
		f.Close()
		return fmt.Errorf("wav: finalize header: %w", err)
	}
	return f.Close()
}

// closeFailed drops the file handle without attempting to finalize the
// header — used when the write itself failed, so the header rewrite would
// likely fail too. The file on disk is a truncated/unfinalized WAV, which
// readers tolerate.
func (s *Sink) closeFailed() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}

type header struct {
	sampleRate    uint32
	numChannels   uint16
	bitsPerSample uint16
}

func (h *header) write(w io.Writer, dataSize uint32) error {
	byteRate := h.sampleRate * uint32(h.numChannels) * uint32(h.bitsPerSample) / 8
	blockAlign := h.numChannels * h.bitsPerSample / 8

	fields := []any{
		[]byte("RIFF"),
		dataSize + 36,
		[]byte("WAVE"),
		[]byte("fmt "),
		uint32(16),
		uint16(1), // PCM
		h.numChannels,
		h.sampleRate,
		byteRate,
		blockAlign,
		h.bitsPerSample,
		[]byte("data"),
		dataSize,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

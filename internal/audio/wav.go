package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/multierr"
)

const (
	pcmBitDepth  = 16
	wavFormatPCM = 1
)

var errOddPCM = errors.New("pcm payload is not 16-bit aligned")

// EncodeWAV writes little-endian 16-bit PCM as a WAV container.
func EncodeWAV(w io.WriteSeeker, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%2 != 0 {
		return errOddPCM
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(w, sampleRate, pcmBitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: pcmBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return multierr.Append(fmt.Errorf("failed to encode wav: %w", err), enc.Close())
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile encodes pcm into a new file at path.
func WriteWAVFile(path string, pcm []byte, sampleRate, channels int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return EncodeWAV(f, pcm, sampleRate, channels)
}

package audio

import "fmt"

// Decimator downsamples 16-bit mono PCM by keeping the first sample of every
// group of factor frames and discarding the rest. There is no anti-aliasing
// filter, so this is lossy and only acceptable for the one rate pair the
// synthesis leg produces; it is not a general resampler.
type Decimator struct {
	inputRate  int
	outputRate int
	factor     int
}

const bytesPerSample = 2

// NewDecimator creates a decimator for the given rate pair. Only 24000 -> 8000
// is supported; anything else is a configuration error and fails loudly.
func NewDecimator(inputRate, outputRate int) (*Decimator, error) {
	if inputRate != 24000 || outputRate != 8000 {
		return nil, fmt.Errorf("unsupported rate pair %d -> %d (only 24000 -> 8000)", inputRate, outputRate)
	}
	return &Decimator{
		inputRate:  inputRate,
		outputRate: outputRate,
		factor:     inputRate / outputRate,
	}, nil
}

// Factor returns the integer decimation factor.
func (d *Decimator) Factor() int { return d.factor }

// Downsample decimates little-endian 16-bit mono PCM. For N input frames the
// output has exactly floor(N/factor) frames; a trailing partial group is
// dropped.
func (d *Decimator) Downsample(pcm []byte) []byte {
	step := d.factor * bytesPerSample
	out := make([]byte, 0, len(pcm)/d.factor)
	for i := 0; i+step <= len(pcm); i += step {
		out = append(out, pcm[i], pcm[i+1])
	}
	return out
}

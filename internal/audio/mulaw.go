package audio

import "encoding/binary"

// G.711 mu-law companding as used on the telephony leg. The encoder drops the
// two lowest bits before companding and the decoder restores the dynamic range
// with a matching left shift, so the round trip is lossy but bounded.
const (
	ulawBias = 0x84
	ulawClip = 32635
)

// EncodeUlaw compresses one 16-bit linear PCM sample to an 8-bit mu-law byte.
// Total over all inputs: out-of-range magnitudes are clipped, never rejected.
func EncodeUlaw(sample int16) byte {
	pcm := int32(sample) >> 2

	var sign byte
	if pcm < 0 {
		pcm = -pcm
		sign = 0x80
	}
	if pcm > ulawClip {
		pcm = ulawClip
	}
	pcm += ulawBias

	// Base-2 exponent of the biased magnitude, offset so the smallest
	// segment (magnitude < 0x100) lands on exponent 0.
	exponent := 7
	for mask := int32(0x4000); mask != 0 && pcm&mask == 0; mask >>= 1 {
		exponent--
	}

	mantissa := byte(pcm>>(uint(exponent)+3)) & 0x0F
	return ^(sign | byte(exponent)<<4 | mantissa)
}

// DecodeUlaw expands one mu-law byte back to a 16-bit linear PCM sample.
func DecodeUlaw(b byte) int16 {
	u := ^b
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	linear := ((int32(mantissa) << 3) + ulawBias) << uint(exponent)
	linear -= ulawBias
	if u&0x80 != 0 {
		linear = -linear
	}
	linear <<= 2

	// The top encoder segment reconstructs slightly past the int16 range;
	// clamp instead of wrapping so the round-trip error stays bounded.
	if linear > 32767 {
		linear = 32767
	}
	if linear < -32768 {
		linear = -32768
	}
	return int16(linear)
}

// UlawFromPCM16 encodes little-endian 16-bit mono PCM into mu-law bytes.
// A trailing odd byte is ignored.
func UlawFromPCM16(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)/2)
	for i := 0; i+2 <= len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		out = append(out, EncodeUlaw(sample))
	}
	return out
}

// PCM16FromUlaw decodes mu-law bytes into little-endian 16-bit mono PCM.
func PCM16FromUlaw(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(DecodeUlaw(b)))
	}
	return out
}

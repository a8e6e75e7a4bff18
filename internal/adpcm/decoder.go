// Package adpcm implements the IMA ADPCM 4-bit decoder used by the
// KiwiSDR compressed audio stream.
package adpcm

// stepSizeTable is the IMA ADPCM step size lookup, indexed by step index.
var stepSizeTable = [89]int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31, 34,
	37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307, 337, 371, 408, 449, 494,
	544, 598, 658, 724, 796, 876, 963, 1060, 1166, 1282, 1411, 1552,
	1707, 1878, 2066, 2272, 2499, 2749, 3024, 3327, 3660, 4026,
	4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442,
	11487, 12635, 13899, 15289, 16818, 18500, 20350, 22385, 24623,
	27086, 29794, 32767,
}

// indexAdjustTable maps a 4-bit nibble to the step-index delta.
var indexAdjustTable = [16]int{
	-1, -1, -1, -1,
	2, 4, 6, 8,
	-1, -1, -1, -1,
	2, 4, 6, 8,
}

func clamp(x, min, max int) int {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// Decoder is a stateful IMA ADPCM to 16-bit PCM decoder. The zero value is
// ready to use. A fresh Decoder must be created for every WAV file opened;
// state is never shared across files.
type Decoder struct {
	stepIndex int
	prev      int
}

// New returns a Decoder in its initial state (step_index=0, prev_sample=0).
func New() *Decoder {
	return &Decoder{}
}

// Reset restores the decoder to its initial state.
func (d *Decoder) Reset() {
	d.stepIndex = 0
	d.prev = 0
}

// StepIndex and PrevSample expose the current decoder state, mostly for
// tests asserting the clamping invariants.
func (d *Decoder) StepIndex() int { return d.stepIndex }
func (d *Decoder) PrevSample() int { return d.prev }

// decodeNibble decodes a single 4-bit code (0..15) into a 16-bit PCM sample.
func (d *Decoder) decodeNibble(code int) int16 {
	step := stepSizeTable[d.stepIndex]

	diff := step >> 3
	if code&1 != 0 {
		diff += step >> 2
	}
	if code&2 != 0 {
		diff += step >> 1
	}
	if code&4 != 0 {
		diff += step
	}
	if code&8 != 0 {
		diff = -diff
	}

	d.prev = clamp(d.prev+diff, -32768, 32767)
	d.stepIndex = clamp(d.stepIndex+indexAdjustTable[code], 0, len(stepSizeTable)-1)

	return int16(d.prev)
}

// Decode expands a buffer of packed ADPCM nibbles into PCM samples. Each
// input byte yields two samples: the low nibble first, then the high
// nibble — the ordering is protocol-mandated and must not be transposed.
func (d *Decoder) Decode(data []byte) []int16 {
	samples := make([]int16, 0, len(data)*2)
	for _, b := range data {
		samples = append(samples, d.decodeNibble(int(b&0x0F)))
		samples = append(samples, d.decodeNibble(int(b>>4)&0x0F))
	}
	return samples
}

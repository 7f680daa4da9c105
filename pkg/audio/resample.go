package audio

// ResampleLinear resamples float32 mono samples from srcRate to dstRate using
// linear interpolation between neighbouring samples. If the rates match (or
// either is invalid) the input is returned unchanged.
func ResampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// EncodePCM16 converts float32 samples to 16-bit little-endian PCM, applying
// a gain factor before clipping to the valid range. A gain of 1.0 is a plain
// conversion; the framer defaults to ~1.5 to compensate for quiet capture
// levels.
func EncodePCM16(samples []float32, gain float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s) * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		n := int16(v * 32767)
		out[i*2] = byte(n)
		out[i*2+1] = byte(n >> 8)
	}
	return out
}

// DecodePCM16 converts 16-bit little-endian PCM back to float32 samples in
// [-1, 1]. A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		n := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(n) / 32768
	}
	return out
}

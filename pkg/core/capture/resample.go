package capture

// Decimate reduces native-rate samples to the wire rate by nearest-neighbor
// selection at the integer-truncated ratio. There is no interpolation and no
// anti-alias filtering: the remote model runs its own recognition, so the
// aliasing this introduces is accepted in exchange for deterministic,
// allocation-light work inside the capture callback.
//
// When nativeRate <= wireRate the input is returned unchanged, same backing
// array and all.
func Decimate(samples []int16, nativeRate, wireRate int) []int16 {
	if wireRate <= 0 || nativeRate <= wireRate {
		return samples
	}
	ratio := nativeRate / wireRate
	out := make([]int16, 0, len(samples)/ratio+1)
	for i := 0; i < len(samples); i += ratio {
		out = append(out, samples[i])
	}
	return out
}

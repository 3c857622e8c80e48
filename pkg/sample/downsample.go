package sample

// DownsampleSamples reduces samples to at most maxPoints by averaging
// consecutive buckets. Each point keeps the time of the first sample in its
// bucket. dst is reused when it has room.
func DownsampleSamples(dst, samples []Sample, maxPoints int) []Sample {
	dst = dst[:0]
	if maxPoints <= 0 || len(samples) == 0 {
		return dst
	}
	if len(samples) <= maxPoints {
		return append(dst, samples...)
	}

	for i := range maxPoints {
		lo := i * len(samples) / maxPoints
		hi := (i + 1) * len(samples) / maxPoints

		var sum float64
		for _, s := range samples[lo:hi] {
			sum += s.Absorbance
		}
		dst = append(dst, Sample{Time: samples[lo].Time, Absorbance: sum / float64(hi-lo)})
	}
	return dst
}

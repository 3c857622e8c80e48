package sample

import (
	"log"
	"time"
)

// NewAveragingConverter creates a converter stage that replaces every Sample
// with the mean absorbance of the last windowSize Samples. This reduces noise
// in streamed measurements.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize+1)
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}

				select {
				case out <- averageSamples(buffer):
				case <-time.After(time.Second):
					log.Printf("Averaging converter output channel full")
				}
			}
		}()

		return out
	}
}

// averageSamples averages a slice of Samples.
// Uses the most recent sample's time.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sum float64
	for _, s := range samples {
		sum += s.Absorbance
	}

	return Sample{
		Time:       samples[len(samples)-1].Time,
		Absorbance: sum / float64(len(samples)),
	}
}

package sample

import (
	"log"
	"time"

	"github.com/itohio/gospectro/pkg/protocol"
)

// Sample represents a processed absorbance measurement.
type Sample struct {
	Time       time.Duration // Time since device boot
	Absorbance float64
}

// Converter is a function type that converts a report channel to a Sample channel.
type Converter func(in <-chan protocol.Report) <-chan Sample

// NewConverter creates a converter function that transforms reports to Samples.
// The first discard reports are thrown away; right after streaming starts they
// may still carry stale data.
func NewConverter(discard int, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan protocol.Report) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			skipped := 0
			for rep := range in {
				if skipped < discard {
					skipped++
					continue
				}

				select {
				case out <- FromReport(rep):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// FromReport converts a single report to a Sample.
func FromReport(rep protocol.Report) Sample {
	return Sample{
		Time:       rep.Time(),
		Absorbance: float64(rep.Absorbance),
	}
}

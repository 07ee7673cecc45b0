package report

import (
	"math"

	"github.com/andresuchdata/popsync/internal/domain"
)

// FilterYears keeps records whose year is within [start, end].
func FilterYears(records []domain.PopulationRecord, start, end int) []domain.PopulationRecord {
	out := make([]domain.PopulationRecord, 0, len(records))
	for _, r := range records {
		if r.Year >= start && r.Year <= end {
			out = append(out, r)
		}
	}
	return out
}

// MeanStdDev returns the arithmetic mean and the population standard
// deviation (divided by N) of the records' population values. ok is false
// for an empty input.
func MeanStdDev(records []domain.PopulationRecord) (mean, stddev float64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}

	n := float64(len(records))
	var sum float64
	for _, r := range records {
		sum += float64(r.Population)
	}
	mean = sum / n

	var sq float64
	for _, r := range records {
		d := float64(r.Population) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n), true
}

package report

import (
	"math"
	"testing"

	"github.com/andresuchdata/popsync/internal/domain"
)

const epsilon = 1e-6

func TestMeanStdDevExample(t *testing.T) {
	records := []domain.PopulationRecord{{Year: 2013, Population: 100}, {Year: 2014, Population: 200}, {Year: 2015, Population: 300}}

	mean, stddev, ok := MeanStdDev(records)
	if !ok {
		t.Fatalf("MeanStdDev reported no data")
	}
	if math.Abs(mean-200) > epsilon {
		t.Fatalf("mean = %v, want 200", mean)
	}
	if want := math.Sqrt(20000.0 / 3.0); math.Abs(stddev-want) > epsilon {
		t.Fatalf("stddev = %v, want %v", stddev, want)
	}
	if math.Abs(stddev-81.65) > 0.01 {
		t.Fatalf("stddev = %v, want about 81.65", stddev)
	}
}

func TestMeanStdDevSingleValue(t *testing.T) {
	mean, stddev, ok := MeanStdDev([]domain.PopulationRecord{{Year: 2013, Population: 42}})
	if !ok || mean != 42 || stddev != 0 {
		t.Fatalf("MeanStdDev = (%v, %v, %v), want (42, 0, true)", mean, stddev, ok)
	}
}

func TestMeanStdDevEmpty(t *testing.T) {
	if _, _, ok := MeanStdDev(nil); ok {
		t.Fatalf("MeanStdDev(nil) should report no data")
	}
}

func TestFilterYearsInclusive(t *testing.T) {
	var records []domain.PopulationRecord
	for y := 2010; y <= 2020; y++ {
		records = append(records, domain.PopulationRecord{Year: y, Population: int64(y)})
	}

	got := FilterYears(records, 2013, 2018)
	if len(got) != 6 {
		t.Fatalf("FilterYears kept %d records, want 6", len(got))
	}
	if got[0].Year != 2013 || got[len(got)-1].Year != 2018 {
		t.Fatalf("FilterYears bounds = %d..%d, want 2013..2018", got[0].Year, got[len(got)-1].Year)
	}

	mean, _, _ := MeanStdDev(got)
	if math.Abs(mean-2015.5) > epsilon {
		t.Fatalf("mean over filtered years = %v, want 2015.5", mean)
	}
}

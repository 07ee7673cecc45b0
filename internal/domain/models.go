package domain

import "time"

// PopulationRecord is one normalized (year, population) pair.
type PopulationRecord struct {
	Year       int   `json:"year"`
	Population int64 `json:"population"`
}

// Summary is the outcome of a report run. HasData is false when no record
// fell inside the year range; Mean and StdDev are zero in that case.
type Summary struct {
	Key         string    `json:"key" db:"object_key"`
	Digest      string    `json:"sha256" db:"sha256"`
	StartYear   int       `json:"start_year" db:"start_year"`
	EndYear     int       `json:"end_year" db:"end_year"`
	Count       int       `json:"count" db:"record_count"`
	Mean        float64   `json:"mean" db:"mean"`
	StdDev      float64   `json:"stddev" db:"stddev"`
	HasData     bool      `json:"has_data" db:"has_data"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}

// IngestResult reports what a single ingest invocation did.
type IngestResult struct {
	MirroredFiles     int  `json:"mirrored_files"`
	MirrorSkipped     bool `json:"mirror_skipped"`
	PopulationWritten bool `json:"population_written"`
}

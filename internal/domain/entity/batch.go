package entity

import "sort"

// RecordingResult is the settled outcome of one recording's pipeline run.
// Exactly one of TrackPath (success) or ErrorKind/ErrorMessage (failure) is
// meaningful.
type RecordingResult struct {
	RecordingID     string
	Status          JobStatus
	TrackPath       string
	SampleCount     int
	DistanceMeters  float64
	MaxSpeedKmh     float64
	DurationSeconds float64
	ErrorKind       ErrorKind
	ErrorMessage    string
}

// BatchResult collects every recording's outcome. It is finalized only after
// all recordings have settled; completion order never leaks into it.
type BatchResult struct {
	Results   []RecordingResult
	Succeeded int
	Failed    int
}

// Add appends one settled outcome.
func (b *BatchResult) Add(r RecordingResult) {
	b.Results = append(b.Results, r)
}

// Finalize sorts results by recording ID and fills the counters. Sorting
// here is what makes the summary deterministic under concurrent completion.
func (b *BatchResult) Finalize() {
	sort.Slice(b.Results, func(i, j int) bool {
		return b.Results[i].RecordingID < b.Results[j].RecordingID
	})
	b.Succeeded, b.Failed = 0, 0
	for _, r := range b.Results {
		if r.Status == JobStatusSucceeded {
			b.Succeeded++
		} else {
			b.Failed++
		}
	}
}

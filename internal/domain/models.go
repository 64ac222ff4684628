package domain

import (
	"time"
)

// MemoryQuery describes one sync run: the calendar day to look up and how many
// prior years to search. Built once at run start, never mutated.
type MemoryQuery struct {
	Month     time.Month
	Day       int
	YearsBack int
}

// MemoryAsset is one photo surfaced by the server for a past year's same day.
type MemoryAsset struct {
	ID           string    `json:"id"`
	TakenAt      time.Time `json:"taken_at"`
	DownloadPath string    `json:"download_path"`
}

// UploadOutcome records what happened to a single asset. Failure is empty on
// success; Attempts counts device upload attempts (0 if the asset never
// reached the device).
type UploadOutcome struct {
	AssetID  string `json:"asset_id"`
	Attempts int    `json:"attempts"`
	Failure  string `json:"failure,omitempty"`
}

func (o UploadOutcome) Succeeded() bool {
	return o.Failure == ""
}

// RunSummary aggregates the per-asset outcomes of one sync run.
type RunSummary struct {
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Outcomes  []UploadOutcome `json:"outcomes"`
}

func (s *RunSummary) Record(o UploadOutcome) {
	s.Total++
	if o.Succeeded() {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Failures returns only the outcomes that did not succeed.
func (s *RunSummary) Failures() []UploadOutcome {
	var failed []UploadOutcome
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

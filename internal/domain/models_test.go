package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSummaryRecord(t *testing.T) {
	var s RunSummary
	s.Record(UploadOutcome{AssetID: "a", Attempts: 1})
	s.Record(UploadOutcome{AssetID: "b", Attempts: 3, Failure: "device returned status 500"})
	s.Record(UploadOutcome{AssetID: "c", Attempts: 2})

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)

	failures := s.Failures()
	assert.Len(t, failures, 1)
	assert.Equal(t, "b", failures[0].AssetID)
}

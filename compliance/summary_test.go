package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/physics-compliance/compliance"
)

func TestSummarize_Counts(t *testing.T) {
	wl := newBuilder().Build(mustDate("2024-04-05"), fleet(), 90)
	s := compliance.Summarize(wl)

	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 1, s.Upcoming)
	assert.Equal(t, 1, s.Compliant)
	assert.Equal(t, 1, s.NoFrequency)
	assert.Equal(t, 2, s.Scheduled)
	assert.Equal(t, 4, s.Total())

	// 2 of 3 classified are not overdue
	assert.Equal(t, "66.7", s.ComplianceRate.StringFixed(1))
}

func TestSummarize_RateZeroWhenNothingClassified(t *testing.T) {
	s := compliance.Summarize(compliance.Worklist{NoFrequency: make([]compliance.DueEntry, 3)})
	assert.True(t, s.ComplianceRate.IsZero())
	assert.Equal(t, 3, s.Total())
}

func TestSummarize_FullCompliance(t *testing.T) {
	s := compliance.Summarize(compliance.Worklist{
		Upcoming:  make([]compliance.DueEntry, 2),
		Compliant: make([]compliance.DueEntry, 6),
	})
	assert.Equal(t, "100.0", s.ComplianceRate.StringFixed(1))
}

package compliance_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func day(y int, m time.Month, d int) generic.Date { return generic.NewDate(y, m, d) }

func mustDate(s string) generic.Date {
	d, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBuilder() *compliance.WorklistBuilder {
	return compliance.NewWorklistBuilder(quietLogger(), 0)
}

func equipment(id generic.EquipmentID, freqs ...string) compliance.Equipment {
	return compliance.Equipment{
		ID:               id,
		AuditFrequencies: freqs,
		PhysicsCoverage:  true,
		Class:            "CT",
	}
}

func testRow(id generic.TestID, eqID generic.EquipmentID, testType, on string) compliance.ComplianceTest {
	return compliance.ComplianceTest{
		ID:          id,
		EquipmentID: eqID,
		TestType:    testType,
		TestDate:    mustDate(on),
	}
}

func schedule(id generic.ScheduleID, eqID generic.EquipmentID, on string) compliance.ScheduledTest {
	return compliance.ScheduledTest{
		ID:            id,
		EquipmentID:   eqID,
		ScheduledDate: mustDate(on),
	}
}

func dateStr(d *generic.Date) string {
	if d == nil {
		return "<nil>"
	}
	return d.String()
}

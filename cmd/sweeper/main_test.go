package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

func TestPrintReport(t *testing.T) {
	reclaimed, failed := uuid.New(), uuid.New()
	report := services.SweepReport{
		Examined:  2,
		Reclaimed: 1,
		Results: []services.SweepResult{
			{OrderID: reclaimed, Outcome: metrics.SweepReclaimed, Tickets: 3},
			{OrderID: failed, Outcome: metrics.SweepFailed, Err: errors.New("connection reset")},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, reclaimed.String())
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "reclaimed=1 examined=2 failed=1")
	assert.Contains(t, out, "status=ok")
}

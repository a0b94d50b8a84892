package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFrame(t *testing.T) {
	before := testutil.ToFloat64(frames.WithLabelValues(KindBinary, OutcomeNoTarget))

	RecordFrame(KindBinary, OutcomeNoTarget)
	RecordFrame(KindBinary, OutcomeNoTarget)

	got := testutil.ToFloat64(frames.WithLabelValues(KindBinary, OutcomeNoTarget))
	if got-before != 2 {
		t.Errorf("frames{binary,no_target} delta = %v, want 2", got-before)
	}
}

func TestRecordSessionLifecycle(t *testing.T) {
	active := testutil.ToFloat64(sessionsActive)
	total := testutil.ToFloat64(sessionsTotal)

	RecordSessionOpened()
	if got := testutil.ToFloat64(sessionsActive); got != active+1 {
		t.Errorf("sessions_active = %v, want %v", got, active+1)
	}

	RecordSessionClosed("dispatcher")
	if got := testutil.ToFloat64(sessionsActive); got != active {
		t.Errorf("sessions_active = %v, want %v", got, active)
	}
	if got := testutil.ToFloat64(sessionsTotal); got != total+1 {
		t.Errorf("sessions_total = %v, want %v", got, total+1)
	}
}

func TestRecordInboundDropped_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(inboundDropped)

	RecordInboundDropped(0)
	RecordInboundDropped(-3)
	RecordInboundDropped(5)

	if got := testutil.ToFloat64(inboundDropped); got-before != 5 {
		t.Errorf("inbound_dropped_total delta = %v, want 5", got-before)
	}
}

func TestRegisterMetrics_Idempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

func TestSetRegistryEntries(t *testing.T) {
	SetRegistryEntries(7)
	if got := testutil.ToFloat64(registryEntries); got != 7 {
		t.Errorf("registry_entries = %v, want 7", got)
	}
	SetRegistryEntries(0)
}

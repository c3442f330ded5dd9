package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePop)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhasePredict)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if stats.MinStepDuration > stats.MaxStepDuration {
		t.Errorf("min %v > max %v", stats.MinStepDuration, stats.MaxStepDuration)
	}

	if _, ok := stats.PhaseAvg[PhasePop]; !ok {
		t.Error("expected pop phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhasePredict]; !ok {
		t.Error("expected predict phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseResolve]; ok {
		t.Error("resolve phase was never started")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePop)
		time.Sleep(10 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseAdvance)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhasePredict)
		time.Sleep(2 * time.Millisecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct[PhaseAdvance]
	slowPct := stats.PhasePct[PhasePredict]
	if slowPct <= fastPct {
		t.Errorf("expected predict phase (%v%%) > advance phase (%v%%)", slowPct, fastPct)
	}

	row := stats.ToCSV(12.5)
	if row.SystemTime != 12.5 {
		t.Errorf("SystemTime = %v, want 12.5", row.SystemTime)
	}
	if row.PredictPct != slowPct {
		t.Errorf("PredictPct = %v, want %v", row.PredictPct, slowPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgStepDuration != 0 {
		t.Error("expected zero avg step duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

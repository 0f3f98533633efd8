package synth

import (
	"math"
	"testing"
)

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestParamChordEnvelope(t *testing.T) {
	// 0 -> 0.15 over 0.3s, then exponential decay to 0.001 at 10s.
	p := NewParam(0).
		SetValueAtTime(0, 1).
		LinearRampToValueAtTime(0.15, 1.3).
		ExponentialRampToValueAtTime(0.001, 10)

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{1, 0},
		{1.15, 0.075},
		{1.3, 0.15},
		{10, 0.001},
		{20, 0.001},
		{1.3 + (10-1.3)/2, math.Sqrt(0.15 * 0.001)},
	}
	for _, tt := range tests {
		if got := p.ValueAt(tt.t); !approx(got, tt.want, 1e-9) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestParamSetTarget(t *testing.T) {
	p := NewParam(0).
		SetValueAtTime(0.0001, 0).
		ExponentialRampToValueAtTime(0.03, 1.3).
		SetTargetAtTime(0.0001, 10, 2.5)

	if got := p.ValueAt(5); !approx(got, 0.03, 1e-12) {
		t.Errorf("ValueAt(5) = %v, want 0.03", got)
	}
	want := 0.0001 + (0.03-0.0001)*math.Exp(-1)
	if got := p.ValueAt(12.5); !approx(got, want, 1e-12) {
		t.Errorf("ValueAt(12.5) = %v, want %v", got, want)
	}
	if got := p.ValueAt(100); !approx(got, 0.0001, 1e-9) {
		t.Errorf("ValueAt(100) = %v, want ~0.0001", got)
	}
}

func TestParamLeadBlip(t *testing.T) {
	p := NewParam(0).
		SetValueAtTime(0.008, 2).
		LinearRampToValueAtTime(0, 2.4)

	tests := []struct {
		t    float64
		want float64
	}{
		{1.9, 0},
		{2, 0.008},
		{2.2, 0.004},
		{2.4, 0},
		{3, 0},
	}
	for _, tt := range tests {
		if got := p.ValueAt(tt.t); !approx(got, tt.want, 1e-12) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestParamExponentialHoldsOnNonPositive(t *testing.T) {
	p := NewParam(0).ExponentialRampToValueAtTime(1, 1)
	if got := p.ValueAt(0.5); got != 0 {
		t.Errorf("ValueAt(0.5) = %v, want 0", got)
	}
	if got := p.ValueAt(1); got != 1 {
		t.Errorf("ValueAt(1) = %v, want 1", got)
	}
}

func TestParamInsertOrder(t *testing.T) {
	p := NewParam(0)
	p.SetValueAtTime(3, 3)
	p.SetValueAtTime(1, 1)
	p.SetValueAtTime(2, 1)
	if got := p.ValueAt(1.5); got != 2 {
		t.Errorf("ValueAt(1.5) = %v, want 2", got)
	}
	if got := p.End(); got != 3 {
		t.Errorf("End() = %v, want 3", got)
	}
}

package dynamo

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}
}

func TestState_Halves(t *testing.T) {
	q, p := State{1, 2, 3, 4}.Halves()
	if len(q) != 2 || len(p) != 2 || q[1] != 2 || p[0] != 3 {
		t.Errorf("Halves() = %v, %v", q, p)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
	if cfg.Tolerance <= 0 {
		t.Error("DefaultConfig has invalid Tolerance")
	}
}

func TestErrorNorm(t *testing.T) {
	x := State{1, 1}
	tol := Tolerance{Abs: 0, Rel: 1e-3}

	if got := ErrorNorm(State{1e-3, 1e-3}, x, x, tol); math.Abs(got-1) > 1e-12 {
		t.Errorf("ErrorNorm at tolerance = %v, want 1", got)
	}
	if got := ErrorNorm(State{0, 0}, x, x, tol); got != 0 {
		t.Errorf("ErrorNorm of zero error = %v", got)
	}
}

func TestNextStep(t *testing.T) {
	if got := NextStep(1, 0, 4, 0.9, 0.2, 5); got != 5 {
		t.Errorf("zero error should grow to max scale, got %v", got)
	}
	if got := NextStep(1, 1e12, 4, 0.9, 0.2, 5); got != 0.2 {
		t.Errorf("huge error should shrink to min scale, got %v", got)
	}
}

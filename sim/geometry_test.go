package sim

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		360:  0,
		720:  0,
		-90:  270,
		450:  90,
		-720: 0,
	}
	for in, want := range cases {
		if got := NormalizeDegrees(in); !approx(got, want) {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
	if got := NormalizeDegrees(-1e-15); got < 0 || got >= 360 {
		t.Errorf("tiny negative should stay in range, got %v", got)
	}
}

func TestAngleBetween(t *testing.T) {
	self := Vec2{10, 10}
	if got := AngleBetween(Vec2{10, 20}, self); !approx(got, 90) {
		t.Errorf("expected 90, got %v", got)
	}
	if got := AngleBetween(Vec2{0, 10}, self); !approx(got, 180) {
		t.Errorf("expected 180, got %v", got)
	}
	if got := AngleBetween(Vec2{10, 0}, self); !approx(got, 270) {
		t.Errorf("expected 270, got %v", got)
	}
}

func TestAngularDifferenceSumsTo360(t *testing.T) {
	for target := 0.0; target < 360; target += 37 {
		for from := 0.0; from < 360; from += 23 {
			cw, ccw := AngularDifference(target, from)
			if !approx(cw+ccw, 360) {
				t.Fatalf("cw+ccw = %v for target %v from %v", cw+ccw, target, from)
			}
			if cw < 0 || ccw < 0 {
				t.Fatalf("negative difference for target %v from %v", target, from)
			}
		}
	}
	cw, ccw := AngularDifference(45, 45)
	if cw != 360 || ccw != 0 {
		t.Errorf("aligned angles should give (360, 0), got (%v, %v)", cw, ccw)
	}
}

func TestTurnDirection(t *testing.T) {
	if d := TurnDirection(90, 0); d != 1 {
		t.Errorf("90 from 0 should turn ccw, got %d", d)
	}
	if d := TurnDirection(270, 0); d != -1 {
		t.Errorf("270 from 0 should turn cw, got %d", d)
	}
	if d := TurnDirection(10, 350); d != 1 {
		t.Errorf("10 from 350 should turn ccw across zero, got %d", d)
	}
	if d := TurnDirection(180, 0); d != 0 {
		t.Errorf("opposite angles tie, got %d", d)
	}
	if d := TurnDirection(33, 33); d != 0 {
		t.Errorf("aligned angles need no turn, got %d", d)
	}
	if got := SmallestAngularDifference(350, 10); !approx(got, 20) {
		t.Errorf("expected 20, got %v", got)
	}
}

func TestHeadingAndPolar(t *testing.T) {
	h := Heading(90)
	if !approx(h.X, 0) || !approx(h.Y, 1) {
		t.Errorf("Heading(90) = %+v", h)
	}
	p := Polar(Vec2{100, 100}, 180, 50)
	if !approx(p.X, 50) || !approx(p.Y, 100) {
		t.Errorf("Polar = %+v", p)
	}
	if n := (Vec2{}).Norm(); !n.IsZero() {
		t.Errorf("zero vector should normalize to zero, got %+v", n)
	}
	r := Vec2{1, 0}.Rotate(90)
	if !approx(r.X, 0) || !approx(r.Y, 1) {
		t.Errorf("Rotate(90) = %+v", r)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 1) != 1 || Clamp(-5, 0, 1) != 0 || Clamp(0.5, 0, 1) != 0.5 {
		t.Error("clamp out of bounds")
	}
}

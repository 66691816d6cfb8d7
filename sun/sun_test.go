package sun

import (
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
)

func TestShadowClassificationScenario(t *testing.T) {
	// spec §8 scenario 5.
	t1 := frame.NewInstant(time.Date(2000, 1, 1, 12, 9, 0, 0, time.UTC))
	rSat1 := r3.Vec{X: 1272.93, Y: 6984.99, Z: 1299.82}
	rSun1 := VectorKm(t1)
	if got := Classify(rSun1, rSat1); got != Lit {
		t.Errorf("expected LIT at t1, got %v", got)
	}

	t2 := t1.Add(21 * time.Minute)
	rSat2 := r3.Vec{X: -7298.55, Y: 500.32, Z: 639.44}
	rSun2 := VectorKm(t2)
	if got := Classify(rSun2, rSat2); got != Umbra {
		t.Errorf("expected UMBRA at t2, got %v", got)
	}
}

func TestIlluminationSignMatchesClassify(t *testing.T) {
	cases := []struct {
		t    frame.Instant
		rSat r3.Vec
	}{
		{frame.NewInstant(time.Date(2000, 1, 1, 12, 9, 0, 0, time.UTC)), r3.Vec{X: 1272.93, Y: 6984.99, Z: 1299.82}},
		{frame.NewInstant(time.Date(2000, 1, 1, 12, 30, 0, 0, time.UTC)), r3.Vec{X: -7298.55, Y: 500.32, Z: 639.44}},
	}
	for _, c := range cases {
		rSun := VectorKm(c.t)
		state := Classify(rSun, c.rSat)
		illum := Illumination(rSun, c.rSat)
		if state == Lit && illum <= 0 {
			t.Errorf("lit classification but non-positive illumination: %v", illum)
		}
		if state != Lit && illum >= 0 {
			t.Errorf("shadow classification (%v) but non-negative illumination: %v", state, illum)
		}
	}
}

func TestVectorAUMagnitudeNearOne(t *testing.T) {
	ti := frame.NewInstant(time.Date(2023, 6, 21, 0, 0, 0, 0, time.UTC))
	v := VectorAU(ti)
	mag := r3.Norm(v)
	// Earth-Sun distance varies between ~0.983 and ~1.017 AU.
	if mag < 0.95 || mag > 1.05 {
		t.Errorf("Sun vector magnitude out of range: %v AU", mag)
	}
}

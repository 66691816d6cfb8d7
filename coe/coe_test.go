package coe

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
)

func TestFromStateVectorValladoExample(t *testing.T) {
	// Vallado "Fundamentals of Astrodynamics and Applications", example 2.5
	// (spec §8 scenario 4).
	r := frame.ECI{Vec: r3.Vec{X: 6524.384, Y: 6862.875, Z: 6448.296}}
	v := frame.ECI{Vec: r3.Vec{X: 4.9013, Y: 5.5338, Z: -1.9763}}

	el := FromStateVector(frame.MuKm3S2, r, v, 1e-8)

	p := el.SMAKm * (1 - el.Ecc*el.Ecc)
	checkClose(t, "p", p, 11067.79, 1.0)
	checkClose(t, "ecc", el.Ecc, 0.83285, 1e-4)
	checkCloseDeg(t, "inc", el.IncRad, 87.870, 0.01)
	checkCloseDeg(t, "raan", el.RAANRad, 227.89, 0.01)
	checkCloseDeg(t, "argp", el.ArgPRad, 53.38, 0.05)
	checkCloseDeg(t, "nu", el.TARad, 92.335, 0.05)
}

func TestRoundTripStateVector(t *testing.T) {
	el := Elements{
		SMAKm:   7000,
		Ecc:     0.01,
		IncRad:  51.6 * math.Pi / 180,
		RAANRad: 120 * math.Pi / 180,
		ArgPRad: 45 * math.Pi / 180,
		TARad:   200 * math.Pi / 180,
	}
	r, v := ToStateVector(frame.MuKm3S2, el)
	back := FromStateVector(frame.MuKm3S2, r, v, 1e-8)

	checkClose(t, "sma", back.SMAKm, el.SMAKm, 1e-6)
	checkClose(t, "ecc", back.Ecc, el.Ecc, 1e-9)
	checkClose(t, "inc", back.IncRad, el.IncRad, 1e-9)
	checkClose(t, "raan", back.RAANRad, el.RAANRad, 1e-9)
	checkClose(t, "argp", back.ArgPRad, el.ArgPRad, 1e-9)
	checkClose(t, "ta", back.TARad, el.TARad, 1e-9)
}

func TestRoundTripCircularEquatorial(t *testing.T) {
	el := Elements{
		SMAKm:   7000,
		Ecc:     0,
		IncRad:  0,
		RAANRad: 0,
		ArgPRad: 0,
		TARad:   1.0,
	}
	r, v := ToStateVector(frame.MuKm3S2, el)
	back := FromStateVector(frame.MuKm3S2, r, v, 1e-8)

	checkClose(t, "sma", back.SMAKm, el.SMAKm, 1e-6)
	checkClose(t, "ecc", back.Ecc, 0, 1e-9)
	checkClose(t, "inc", back.IncRad, 0, 1e-9)
}

func checkClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v want %v (tol %v)", name, got, want, tol)
	}
}

func checkCloseDeg(t *testing.T, name string, gotRad, wantDeg, tolDeg float64) {
	t.Helper()
	gotDeg := gotRad * 180 / math.Pi
	if math.Abs(gotDeg-wantDeg) > tolDeg {
		t.Errorf("%s: got %v deg want %v deg (tol %v)", name, gotDeg, wantDeg, tolDeg)
	}
}

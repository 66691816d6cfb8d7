// Package coe converts between classical (Keplerian) orbital elements and
// Cartesian state vectors, handling the circular/equatorial singular cases
// (spec §4.3).
package coe

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
)

const twoPi = 2 * math.Pi

// Elements holds the six classical orbital elements, angles in radians.
// Invariants (spec §3): SMAKm > 0, 0 <= Ecc < 1, 0 <= IncRad <= pi, all
// angles stored modulo 2*pi.
type Elements struct {
	SMAKm   float64
	Ecc     float64
	IncRad  float64
	RAANRad float64
	ArgPRad float64
	TARad   float64
}

// Normalize reduces RAANRad, ArgPRad and TARad into [0, 2*pi). IncRad is
// left unchanged.
func (e Elements) Normalize() Elements {
	e.RAANRad = mod2pi(e.RAANRad)
	e.ArgPRad = mod2pi(e.ArgPRad)
	e.TARad = mod2pi(e.TARad)
	return e
}

func mod2pi(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// ToStateVector implements coe2rv (spec §4.3): builds the perifocal position
// and velocity, then rotates into the reference frame via
// Z(-argp) . X(-inc) . Z(-raan).
func ToStateVector(mu float64, el Elements) (r, v frame.ECI) {
	p := el.SMAKm * (1 - el.Ecc*el.Ecc)
	nu := el.TARad

	sinNu, cosNu := math.Sincos(nu)
	denom := 1 + el.Ecc*cosNu

	rPQW := r3.Vec{
		X: (p / denom) * cosNu,
		Y: (p / denom) * sinNu,
		Z: 0,
	}
	coeff := math.Sqrt(mu / p)
	vPQW := r3.Vec{
		X: coeff * -sinNu,
		Y: coeff * (el.Ecc + cosNu),
		Z: 0,
	}

	rot := perifocalToRefRotation(el.RAANRad, el.IncRad, el.ArgPRad)

	r = frame.ECI{Vec: applyRotation(rot, rPQW)}
	v = frame.ECI{Vec: applyRotation(rot, vPQW)}
	return
}

// perifocalToRefRotation builds the composite DCM Z(-raan).X(-inc).Z(-argp)
// used to rotate perifocal (PQW) vectors into the reference (ECI) frame,
// via gonum's mat.Dense rather than hand-unrolled scalar composition.
func perifocalToRefRotation(raan, inc, argp float64) *mat.Dense {
	rz1 := elementaryRotation(frame.AxisZ, -raan)
	rx := elementaryRotation(frame.AxisX, -inc)
	rz2 := elementaryRotation(frame.AxisZ, -argp)

	var tmp, result mat.Dense
	tmp.Mul(rz1, rx)
	result.Mul(&tmp, rz2)
	return &result
}

// elementaryRotation returns the 3x3 DCM for rotate(v, axis, angleRad).
func elementaryRotation(axis frame.Axis, angleRad float64) *mat.Dense {
	s, c := math.Sincos(angleRad)
	switch axis {
	case frame.AxisX:
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, c, s,
			0, -s, c,
		})
	case frame.AxisY:
		return mat.NewDense(3, 3, []float64{
			c, 0, -s,
			0, 1, 0,
			s, 0, c,
		})
	default: // AxisZ
		return mat.NewDense(3, 3, []float64{
			c, s, 0,
			-s, c, 0,
			0, 0, 1,
		})
	}
}

func applyRotation(m *mat.Dense, v r3.Vec) r3.Vec {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// FromStateVector implements rv2coe (spec §4.3): recovers classical
// elements from a Cartesian state vector, dispatching the four singular
// cases by ecc<tol (circular) and |inc|<tol (equatorial).
func FromStateVector(mu float64, r, v frame.ECI, tol float64) Elements {
	rVec, vVec := r.Vec, v.Vec

	rMag := r3.Norm(rVec)
	vMag := r3.Norm(vVec)

	hVec := r3.Cross(rVec, vVec)
	h := r3.Norm(hVec)

	nVec := r3.Cross(r3.Vec{X: 0, Y: 0, Z: 1}, hVec)
	n := r3.Norm(nVec)

	rdv := r3.Dot(rVec, vVec)
	factor := vMag*vMag - mu/rMag
	eVec := r3.Vec{
		X: (factor*rVec.X - rdv*vVec.X) / mu,
		Y: (factor*rVec.Y - rdv*vVec.Y) / mu,
		Z: (factor*rVec.Z - rdv*vVec.Z) / mu,
	}
	ecc := r3.Norm(eVec)

	p := h * h / mu
	inc := math.Acos(clamp(hVec.Z/h, -1, 1))

	circular := ecc < tol
	equatorial := inc < tol || math.Abs(inc-math.Pi) < tol

	var raan, argp, nu float64

	switch {
	case equatorial && !circular:
		raan = 0
		argp = mod2pi(math.Atan2(eVec.Y, eVec.X))
		nu = mod2pi(math.Atan2(r3.Dot(hVec, r3.Cross(eVec, rVec))/h, r3.Dot(rVec, eVec)))

	case !equatorial && circular:
		raan = mod2pi(math.Atan2(nVec.Y, nVec.X))
		argp = 0
		nu = mod2pi(math.Atan2(r3.Dot(rVec, r3.Cross(hVec, nVec))/h, r3.Dot(rVec, nVec)))

	case equatorial && circular:
		raan = 0
		argp = 0
		nu = mod2pi(math.Atan2(rVec.Y, rVec.X))

	default:
		raan = mod2pi(math.Atan2(nVec.Y, nVec.X))
		argp = mod2pi(math.Atan2(r3.Dot(eVec, r3.Cross(hVec, nVec))/h/n, r3.Dot(nVec, eVec)/n))
		nu = mod2pi(math.Atan2(r3.Dot(rVec, r3.Cross(hVec, eVec))/h/ecc, r3.Dot(rVec, eVec)/ecc))
	}

	var sma float64
	if math.Abs(1-ecc) > 1e-10 {
		sma = p / (1 - ecc*ecc)
	} else {
		sma = math.Inf(1)
	}

	return Elements{
		SMAKm:   sma,
		Ecc:     ecc,
		IncRad:  inc,
		RAANRad: raan,
		ArgPRad: argp,
		TARad:   nu,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

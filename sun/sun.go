// Package sun implements the low-precision Sun vector model and the
// cylindrical-cone Earth-shadow geometry (spec §4.5).
package sun

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
)

// J2000 mean obliquity of the ecliptic (Lieske 1979), reused from the same
// physical constant the teacher's kepler/coord packages carry — this is not
// teacher-specific code, it is the IAU 1980 mean obliquity at epoch.
const (
	obliquitySin = 0.3977771559319137062
	obliquityCos = 0.9174820620691818140

	deg2rad = math.Pi / 180.0

	// December 31 1999 midnight JD, the epoch the low-precision Sun model
	// measures "date" from (spec §4.5).
	epochJD = 2451543.5

	alphaUmbRad = 0.264121687 * deg2rad
	alphaPenRad = 0.269007205 * deg2rad
)

// VectorAU returns the geocentric Sun position in ECI, in astronomical
// units, using the low-precision model described in spec §4.5 (accuracy
// target: angular error < 1 degree).
func VectorAU(t frame.Instant) r3.Vec {
	date := t.JulianDate() - epochJD

	// Mean longitude of perihelion, eccentricity, mean anomaly of the Sun's
	// apparent orbit (linear in date).
	w := 282.9404 + 4.70935e-5*date    // deg
	e := 0.016709 - 1.151e-9*date      // eccentricity
	M := mod360(356.0470 + 0.9856002585*date) // deg

	Mrad := M * deg2rad
	// One-term Kepler-like correction for the auxiliary (eccentric) angle.
	E := M + (180.0/math.Pi)*e*math.Sin(Mrad)*(1+e*math.Cos(Mrad))
	Erad := E * deg2rad

	xv := math.Cos(Erad) - e
	yv := math.Sqrt(1-e*e) * math.Sin(Erad)

	r := math.Sqrt(xv*xv + yv*yv)
	trueAnomaly := math.Atan2(yv, xv) * 180 / math.Pi

	lon := mod360(trueAnomaly + w) // ecliptic longitude of the Sun, deg
	lonRad := lon * deg2rad

	xEcl := r * math.Cos(lonRad)
	yEcl := r * math.Sin(lonRad)

	// Rotate about X by the mean obliquity: ecliptic -> equatorial (ECI).
	// zEcl is implicitly 0 (the Sun's ecliptic latitude is taken as zero in
	// this low-precision model).
	return r3.Vec{
		X: xEcl,
		Y: obliquityCos * yEcl,
		Z: obliquitySin * yEcl,
	}
}

// VectorKm returns the Sun vector in km (VectorAU scaled by 1 AU).
func VectorKm(t frame.Instant) r3.Vec {
	v := VectorAU(t)
	return r3.Scale(frame.AUKm, v)
}

func mod360(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// ShadowState is the discrete three-valued illumination classification.
type ShadowState int

const (
	Umbra ShadowState = iota
	Penumbra
	Lit
)

func (s ShadowState) String() string {
	switch s {
	case Lit:
		return "lit"
	case Penumbra:
		return "penumbra"
	default:
		return "umbra"
	}
}

// cylinderGeometry computes the shared cone-projection quantities used by
// both Classify and Illumination, so the discrete and continuous functions
// stay consistent at the shadow boundary (spec §4.5/§9).
type cylinderGeometry struct {
	sunDotSat float64
	satVert   float64
	penVert   float64
	umbVert   float64
}

func computeCylinderGeometry(rSunKm, rSatKm r3.Vec) cylinderGeometry {
	sunDotSat := r3.Dot(rSunKm, rSatKm)

	negSun := r3.Scale(-1, rSunKm)
	theta := angleBetween(negSun, rSatKm)

	satMag := r3.Norm(rSatKm)
	satHoriz := satMag * math.Cos(theta)
	satVert := satMag * math.Sin(theta)

	penVert := math.Tan(alphaPenRad) * (frame.REKm/math.Sin(alphaPenRad) + satHoriz)
	umbVert := math.Tan(alphaUmbRad) * (frame.REKm/math.Sin(alphaUmbRad) - satHoriz)

	return cylinderGeometry{sunDotSat: sunDotSat, satVert: satVert, penVert: penVert, umbVert: umbVert}
}

// angleBetween is Kahan's numerically stable angle-between-vectors formula
// (2*atan2(|a*|b| - b*|a||, |a*|b| + b*|a||)), the same construction the
// teacher's elements.go angleBetween uses for true-anomaly-from-state-vector
// recovery — a plain acos(dot/(|a||b|)) loses precision for near-parallel or
// near-antiparallel vectors, exactly the geometry this function is evaluated
// at near a shadow boundary crossing.
func angleBetween(a, b r3.Vec) float64 {
	aMag := r3.Norm(a)
	bMag := r3.Norm(b)
	if aMag == 0 || bMag == 0 {
		return 0
	}
	scaledA := r3.Scale(bMag, a)
	scaledB := r3.Scale(aMag, b)
	return 2.0 * math.Atan2(r3.Norm(r3.Sub(scaledA, scaledB)), r3.Norm(r3.Add(scaledA, scaledB)))
}

// Classify implements Vallado's cylindrical-cone shadow algorithm (algorithm
// 34) exactly as spec §4.5 specifies.
func Classify(rSunKm, rSatKm r3.Vec) ShadowState {
	if r3.Dot(rSunKm, rSatKm) >= 0 {
		return Lit
	}
	g := computeCylinderGeometry(rSunKm, rSatKm)
	if g.satVert > g.penVert {
		return Lit
	}
	if g.satVert <= g.umbVert {
		return Umbra
	}
	return Penumbra
}

// Illumination is the continuous signed illumination function required by
// the eclipse root-finder (spec §4.5): positive in sunlight, negative in
// penumbra or umbra, with zero crossings exactly at the shadow boundary.
func Illumination(rSunKm, rSatKm r3.Vec) float64 {
	if r3.Dot(rSunKm, rSatKm) < 0 {
		g := computeCylinderGeometry(rSunKm, rSatKm)
		return g.satVert - g.penVert
	}
	return r3.Norm(rSatKm) - frame.REKm/math.Cos(alphaPenRad)
}

// Package orbitdesign solves for classical elements that satisfy a
// mission-level design constraint instead of propagating a given orbit: Sun
// synchronicity (constant local solar time at the ascending node) and
// repeating ground tracks (spec §4.8).
package orbitdesign

import (
	"math"

	"github.com/pkg/errors"

	"github.com/satpredict/satpredict/coe"
	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/sun"
)

// sunPrecessionRadS is the target RAAN precession rate that keeps an orbital
// plane fixed relative to the mean Sun: 2*pi per tropical year
// (original_source/orbit_predictor/constants.py's OMEGA).
const sunPrecessionRadS = 2 * math.Pi / (86400 * 365.2421897)

// ErrInvalidOrbit is returned when the two given design parameters admit no
// real solution for the third (spec §4.8, original_source's
// InvalidOrbitError).
var ErrInvalidOrbit = errors.New("orbitdesign: no sun-synchronous orbit satisfies the given parameters")

// ErrUnderspecified is returned when fewer than two of {altitude,
// eccentricity, inclination} are given to SunSynchronous.
var ErrUnderspecified = errors.New("orbitdesign: exactly two of altitude, eccentricity, inclination must be given")

// SunSynchronousParams specifies a Sun-synchronous design query: exactly two
// of AltKm, Ecc, IncDeg must be non-nil: the routine solves for the third
// (spec §4.8).
type SunSynchronousParams struct {
	AltKm  *float64
	Ecc    *float64
	IncDeg *float64
}

// SunSynchronous solves for the classical elements of a Sun-synchronous
// orbit (spec §4.8), matching original_source's J2Predictor.sun_synchronous
// exactly in its three solved-variable cases. Only SMAKm, Ecc and IncRad are
// set; RAANRad, ArgPRad and TARad are zero, and no LTAN or epoch is taken
// (RAANFromLTAN computes a RAAN separately).
func SunSynchronous(p SunSynchronousParams) (coe.Elements, error) {
	switch {
	case p.AltKm != nil && p.Ecc != nil:
		sma := frame.REKm + *p.AltKm
		ecc := *p.Ecc
		arg := (-2 * math.Pow(sma, 3.5) * sunPrecessionRadS * (1 - ecc*ecc) * (1 - ecc*ecc)) /
			(3 * frame.REKm * frame.REKm * frame.J2 * math.Sqrt(frame.MuKm3S2))
		if arg < -1 || arg > 1 || math.IsNaN(arg) {
			return coe.Elements{}, ErrInvalidOrbit
		}
		incRad := math.Acos(arg)
		return coe.Elements{SMAKm: sma, Ecc: ecc, IncRad: incRad}, nil

	case p.AltKm != nil && p.IncDeg != nil:
		sma := frame.REKm + *p.AltKm
		incRad := *p.IncDeg * math.Pi / 180.0
		inner := (-3 * frame.REKm * frame.REKm * frame.J2 * math.Sqrt(frame.MuKm3S2) * math.Cos(incRad)) /
			(2 * sunPrecessionRadS * math.Pow(sma, 3.5))
		if inner < 0 || math.IsNaN(inner) {
			return coe.Elements{}, ErrInvalidOrbit
		}
		ecc2 := 1 - math.Sqrt(inner)
		if ecc2 < 0 {
			return coe.Elements{}, ErrInvalidOrbit
		}
		ecc := math.Sqrt(ecc2)
		return coe.Elements{SMAKm: sma, Ecc: ecc, IncRad: incRad}, nil

	case p.Ecc != nil && p.IncDeg != nil:
		ecc := *p.Ecc
		incRad := *p.IncDeg * math.Pi / 180.0
		base := (-math.Cos(incRad) * (3 * frame.REKm * frame.REKm * frame.J2 * math.Sqrt(frame.MuKm3S2))) /
			(2 * sunPrecessionRadS * (1 - ecc*ecc) * (1 - ecc*ecc))
		if base < 0 || math.IsNaN(base) {
			return coe.Elements{}, ErrInvalidOrbit
		}
		sma := math.Pow(base, 2.0/7.0)
		return coe.Elements{SMAKm: sma, Ecc: ecc, IncRad: incRad}, nil

	default:
		return coe.Elements{}, ErrUnderspecified
	}
}

// RAANFromLTAN converts a desired local time of the ascending node (hours,
// 0-24) at epoch into the corresponding RAAN (degrees), via the Sun's right
// ascension at that instant (spec §4.8, original_source's raan_from_ltan).
func RAANFromLTAN(epoch frame.Instant, ltanH float64) float64 {
	sunEci := sun.VectorAU(epoch)
	raDeg := math.Atan2(sunEci.Y, sunEci.X) * 180 / math.Pi
	raan := math.Mod(raDeg+15.0*(ltanH-12.0), 360)
	if raan < 0 {
		raan += 360
	}
	return raan
}

// LTANFromRAAN is RAANFromLTAN's inverse: the local time of the ascending
// node (hours, 0-24) implied by a given RAAN (degrees) at epoch.
func LTANFromRAAN(epoch frame.Instant, raanDeg float64) float64 {
	sunEci := sun.VectorAU(epoch)
	raDeg := math.Atan2(sunEci.Y, sunEci.X) * 180 / math.Pi
	ltan := 12.0 + (raanDeg-raDeg)/15.0
	ltan = math.Mod(ltan, 24)
	if ltan < 0 {
		ltan += 24
	}
	return ltan
}

// RepeatingGroundTrack solves for the semi-major axis (km) that makes a
// satellite's ground track repeat every `days` days over `orbits` orbits,
// via the fixed-point iteration of spec §4.8 / original_source's
// repeating_ground_track_sma: each iteration corrects the target mean
// motion for the J2 secular rates of RAAN, argument of periapsis, and mean
// anomaly, until the semi-major axis converges.
func RepeatingGroundTrack(orbits, days int, ecc, incDeg float64, tolerance float64) (float64, error) {
	if orbits <= 0 || days <= 0 {
		return 0, errors.New("orbitdesign: orbits and days must be positive integers")
	}
	if tolerance <= 0 {
		tolerance = 1e-8
	}

	k := float64(orbits) / float64(days)
	n := k * frame.OmegaEarth
	incRad := incDeg * math.Pi / 180.0
	sinInc2 := math.Sin(incRad) * math.Sin(incRad)
	cosInc := math.Cos(incRad)

	const maxIter = 1000
	var sma float64
	for i := 0; i < maxIter; i++ {
		smaNew := math.Cbrt(frame.MuKm3S2 / (n * n))
		p := smaNew * (1 - ecc*ecc)
		reOverP2 := (frame.REKm / p) * (frame.REKm / p)

		nodeDot := -1.5 * n * frame.J2 * reOverP2 * cosInc
		argpDot := 0.75 * n * frame.J2 * reOverP2 * (4 - 5*sinInc2)
		m0Dot := 0.75 * n * frame.J2 * reOverP2 * math.Sqrt(1-ecc*ecc) * (2 - 3*sinInc2)

		n = k*(frame.OmegaEarth-nodeDot) - (m0Dot + argpDot)
		sma = math.Cbrt(frame.MuKm3S2 / (n * n))

		if math.Abs(sma-smaNew) <= tolerance*math.Max(math.Abs(sma), math.Abs(smaNew)) {
			return sma, nil
		}
	}
	return sma, errors.New("orbitdesign: repeating ground track iteration did not converge")
}

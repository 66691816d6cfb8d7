// Package propagator defines the uniform Propagator interface (spec §4.4)
// over three backends — SGP4, Keplerian, and J2-secular — and the generic
// derived operations (ECEF propagation, geodetic/osculating position,
// normal vector, beta angle) built atop any of them.
package propagator

import (
	"math"
	"strconv"
	"strings"
	"sync"

	gosatellite "github.com/joshuaferrara/go-satellite"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/anomaly"
	"github.com/satpredict/satpredict/coe"
	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/sun"
	"github.com/satpredict/satpredict/tle"
)

// ErrPropagation wraps any backend propagation failure (spec §7).
var ErrPropagation = errors.New("propagator: propagation failed")

const twoPi = 2 * math.Pi

// Propagator is the sum-type-over-inheritance capability set spec §9 calls
// for: the only polymorphic operations are PropagateECI, MeanMotionRadPerMin
// and PeriodMin. Everything else (Position, NormalVector, Beta, ...) is
// generic over any implementation.
type Propagator interface {
	// PropagateECI returns position and velocity in ECI (km, km/s) at t.
	PropagateECI(t frame.Instant) (r, v frame.ECI, err error)
	// MeanMotionRadPerMin returns the mean motion in radians per minute.
	MeanMotionRadPerMin() float64
	// PeriodMin returns the orbital period in minutes.
	PeriodMin() float64
}

// PropagateECEF converts a propagator's ECI state to ECEF at t.
func PropagateECEF(p Propagator, t frame.Instant) (r, v frame.ECEF, err error) {
	rEci, vEci, err := p.PropagateECI(t)
	if err != nil {
		return frame.ECEF{}, frame.ECEF{}, err
	}
	gmst := frame.GMSTDegrees(t.JulianDate())
	return frame.ECIToECEF(rEci, gmst), frame.ECIToECEF(vEci, gmst), nil
}

// Position is the full position entity of spec §3: instant, ECEF state,
// with lazily-derived geodetic and osculating-element views.
type Position struct {
	WhenUTC       frame.Instant
	PositionECEF  frame.ECEF
	VelocityECEF  frame.ECEF
	ErrorEstimate *float64

	llhOnce  sync.Once
	llhLat   float64
	llhLon   float64
	llhAlt   float64

	osculatingOnce sync.Once
	osculating     coe.Elements
}

// Geodetic returns (lat_deg, lon_deg, alt_km), computed once and cached
// (spec §9 "Cached derived quantities").
func (p *Position) Geodetic() (latDeg, lonDeg, altKm float64) {
	p.llhOnce.Do(func() {
		p.llhLat, p.llhLon, p.llhAlt = frame.ECEFToGeodetic(p.PositionECEF)
	})
	return p.llhLat, p.llhLon, p.llhAlt
}

// OsculatingElements returns the osculating Keplerian elements derived from
// this position's ECEF state (via ECI), computed once and cached.
func (p *Position) OsculatingElements() coe.Elements {
	p.osculatingOnce.Do(func() {
		gmst := frame.GMSTDegrees(p.WhenUTC.JulianDate())
		rEci := frame.ECEFToECI(p.PositionECEF, gmst)
		vEci := frame.ECEFToECI(p.VelocityECEF, gmst)
		p.osculating = coe.FromStateVector(frame.MuKm3S2, rEci, vEci, 1e-8)
	})
	return p.osculating
}

// GetPosition returns a Position at t (spec §4.4 "get_position").
func GetPosition(p Propagator, t frame.Instant) (*Position, error) {
	rEcef, vEcef, err := PropagateECEF(p, t)
	if err != nil {
		return nil, err
	}
	return &Position{WhenUTC: t, PositionECEF: rEcef, VelocityECEF: vEcef}, nil
}

// GetOnlyPosition returns just the ECEF position at t — the hot path pass
// search calls exactly once per elevation evaluation (spec §4.6).
func GetOnlyPosition(p Propagator, t frame.Instant) (frame.ECEF, error) {
	rEci, _, err := p.PropagateECI(t)
	if err != nil {
		return frame.ECEF{}, err
	}
	gmst := frame.GMSTDegrees(t.JulianDate())
	return frame.ECIToECEF(rEci, gmst), nil
}

// NormalVector returns the unit vector orthogonal to the orbital plane at t:
// (r x v) / |r x v| (spec §4.4).
func NormalVector(p Propagator, t frame.Instant) (r3.Vec, error) {
	r, v, err := p.PropagateECI(t)
	if err != nil {
		return r3.Vec{}, err
	}
	n := r3.Cross(r.Vec, v.Vec)
	mag := r3.Norm(n)
	if mag == 0 {
		return r3.Vec{}, nil
	}
	return r3.Scale(1/mag, n), nil
}

// Beta returns the angle (degrees) between the orbital plane and the Sun
// direction at t: 90 - angle(sun_eci(t), normal(t)) (spec §4.4).
func Beta(p Propagator, t frame.Instant) (float64, error) {
	normal, err := NormalVector(p, t)
	if err != nil {
		return 0, err
	}
	sunVec := sun.VectorAU(t)

	cosAngle := r3.Dot(sunVec, normal) / (r3.Norm(sunVec) * r3.Norm(normal))
	if cosAngle > 1 {
		cosAngle = 1
	} else if cosAngle < -1 {
		cosAngle = -1
	}
	angleDeg := math.Acos(cosAngle) * 180 / math.Pi
	return 90 - angleDeg, nil
}

// PeriodMinOf is a free function matching spec §4.4's "period_min =
// 2*pi/mean_motion", usable without a concrete backend reference beyond the
// Propagator interface (kept for symmetry with the teacher's style of small
// composable helpers; Propagator implementations also expose it directly).
func PeriodMinOf(p Propagator) float64 {
	return twoPi / p.MeanMotionRadPerMin()
}

// --- SGP4 backend -----------------------------------------------------

// SGP4 wraps the external go-satellite SGP4 implementation (spec §1: "any
// off-the-shelf SGP4 library suffices"), the same library the teacher wires
// in satellite.Sat.
type SGP4 struct {
	satID        string
	line1, line2 string
	sat          gosatellite.Satellite
	meanMotion   float64 // rad/min, un-Kozai'd
}

// NewSGP4 builds an SGP4 propagator from TLE lines.
func NewSGP4(satID, line1, line2 string) (*SGP4, error) {
	sat := gosatellite.TLEToSat(line1, line2, gosatellite.GravityWGS84)
	mm, err := unKozaiMeanMotion(line2)
	if err != nil {
		return nil, errors.Wrap(err, "propagator: parsing TLE mean motion")
	}
	return &SGP4{satID: satID, line1: line1, line2: line2, sat: sat, meanMotion: mm}, nil
}

// NewSGP4FromTLE builds an SGP4 propagator from a tle.TLE.
func NewSGP4FromTLE(t tle.TLE) (*SGP4, error) {
	return NewSGP4(t.SatID, t.Line1, t.Line2)
}

// Lines exposes the raw TLE text, needed for error-logging context (spec
// §9 "the only polymorphic operations are... for TLE only, access to raw
// TLE lines for error logs").
func (s *SGP4) Lines() (string, string) { return s.line1, s.line2 }

// SatID returns the satellite identifier this propagator was built for.
func (s *SGP4) SatID() string { return s.satID }

// PropagateECI implements Propagator.
func (s *SGP4) PropagateECI(t frame.Instant) (frame.ECI, frame.ECI, error) {
	tm := t.Time()
	pos, vel := gosatellite.Propagate(s.sat, tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return frame.ECI{}, frame.ECI{}, errors.Wrap(ErrPropagation, "sgp4 returned NaN position (decayed or degenerate orbit)")
	}
	r := frame.ECI{Vec: r3.Vec{X: pos.X, Y: pos.Y, Z: pos.Z}}
	v := frame.ECI{Vec: r3.Vec{X: vel.X, Y: vel.Y, Z: vel.Z}}
	return r, v, nil
}

// MeanMotionRadPerMin implements Propagator, applying the un-Kozai
// transform to the TLE's mean-motion-kozai per spec §4.4.
func (s *SGP4) MeanMotionRadPerMin() float64 { return s.meanMotion }

// PeriodMin implements Propagator.
func (s *SGP4) PeriodMin() float64 { return twoPi / s.meanMotion }

// Standard SGP4 initialization constants (Vallado/Hoots), in Earth-radii /
// minute units.
const (
	sgp4Ke  = 0.07436691613317341
	sgp4CK2 = 5.413080e-4
)

// unKozaiMeanMotion parses the Kozai mean motion (revs/day, TLE line 2
// columns 53-63) and applies the standard closed-form un-Kozai transform
// (spec §4.4) to recover the Brouwer mean motion in rad/min.
func unKozaiMeanMotion(line2 string) (float64, error) {
	if len(line2) < 63 {
		return 0, errors.New("line2 too short")
	}
	incDeg, err := parseFixedFloat(line2[8:16])
	if err != nil {
		return 0, errors.Wrap(err, "inclination field")
	}
	eccStr := "0." + strings.TrimSpace(line2[26:33])
	ecc, err := parseFixedFloat(eccStr)
	if err != nil {
		return 0, errors.Wrap(err, "eccentricity field")
	}
	noKozaiRevDay, err := parseFixedFloat(line2[52:63])
	if err != nil {
		return 0, errors.Wrap(err, "mean motion field")
	}

	noKozai := noKozaiRevDay * twoPi / 1440.0 // rad/min
	incRad := incDeg * math.Pi / 180.0

	cosio := math.Cos(incRad)
	theta2 := cosio * cosio
	x3thm1 := 3*theta2 - 1
	eosq := ecc * ecc
	betao2 := 1 - eosq
	betao := math.Sqrt(betao2)

	a1 := math.Pow(sgp4Ke/noKozai, 2.0/3.0)
	del1 := 1.5 * sgp4CK2 * x3thm1 / (a1 * a1 * betao * betao2)
	ao := a1 * (1 - del1*(1.0/3.0+del1*(1+134.0/81.0*del1)))
	delo := 1.5 * sgp4CK2 * x3thm1 / (ao * ao * betao * betao2)

	return noKozai / (1 + delo), nil
}

func parseFixedFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// --- Keplerian backend --------------------------------------------------

// Keplerian propagates classical elements forward in time without secular
// perturbations: advances the mean anomaly linearly and holds every other
// element fixed (spec §4.4). Robust against singularities as long as the
// starting elements are well specified; only valid for elliptical orbits.
type Keplerian struct {
	elements coe.Elements
	epoch    frame.Instant
	n        float64 // rad/min
}

// NewKeplerian builds a Keplerian propagator from classical elements and an
// epoch.
func NewKeplerian(el coe.Elements, epoch frame.Instant) *Keplerian {
	n := math.Sqrt(frame.MuKm3S2/(el.SMAKm*el.SMAKm*el.SMAKm)) * 60 // rad/s -> rad/min
	return &Keplerian{elements: el, epoch: epoch, n: n}
}

// Elements returns the stored classical elements (for serialization, spec
// §9 "Pickling").
func (k *Keplerian) Elements() coe.Elements   { return k.elements }
func (k *Keplerian) Epoch() frame.Instant     { return k.epoch }

// PropagateECI implements Propagator.
func (k *Keplerian) PropagateECI(t frame.Instant) (frame.ECI, frame.ECI, error) {
	deltaMin := t.Sub(k.epoch).Minutes()

	M0 := anomaly.TrueToMean(k.elements.TARad, k.elements.Ecc)
	M := M0 + k.n*deltaMin

	nu, err := anomaly.MeanToTrue(M, k.elements.Ecc)
	if err != nil {
		return frame.ECI{}, frame.ECI{}, errors.Wrap(ErrPropagation, err.Error())
	}

	el := k.elements
	el.TARad = nu
	r, v := coe.ToStateVector(frame.MuKm3S2, el)
	return r, v, nil
}

// MeanMotionRadPerMin implements Propagator.
func (k *Keplerian) MeanMotionRadPerMin() float64 { return k.n }

// PeriodMin implements Propagator.
func (k *Keplerian) PeriodMin() float64 { return twoPi / k.n }

// KeplerianFromTLE builds an approximate Keplerian propagator by sampling a
// TLE-backed (SGP4) predictor once at a reference epoch and reading off its
// osculating elements — supplemented from original_source/orbit_predictor's
// KeplerianPredictor.from_tle, which notes the TEME-to-osculating conversion
// is not precisely defined in the literature but is a useful approximation
// (Vallado 3rd ed., pp. 236-240).
func KeplerianFromTLE(t tle.TLE, epoch frame.Instant) (*Keplerian, error) {
	sgp4, err := NewSGP4FromTLE(t)
	if err != nil {
		return nil, err
	}
	pos, err := GetPosition(sgp4, epoch)
	if err != nil {
		return nil, err
	}
	el := pos.OsculatingElements()
	return NewKeplerian(el, epoch), nil
}

// --- J2-secular backend --------------------------------------------------

// J2Secular extends Keplerian with the secular rates of RAAN, argument of
// periapsis, and mean anomaly driven by Earth's J2 oblateness (spec §4.4),
// applied to the stored elements before each Kepler solve.
type J2Secular struct {
	elements coe.Elements
	epoch    frame.Instant
	n        float64 // rad/min, unperturbed mean motion
	p        float64 // semi-latus rectum, km

	raanDotRadMin float64
	argpDotRadMin float64
	m0DotRadMin   float64
}

// NewJ2Secular builds a J2-secular propagator from classical elements and an
// epoch, precomputing the secular rates (spec §4.4).
func NewJ2Secular(el coe.Elements, epoch frame.Instant) *J2Secular {
	n := math.Sqrt(frame.MuKm3S2/(el.SMAKm*el.SMAKm*el.SMAKm)) * 60 // rad/min
	p := el.SMAKm * (1 - el.Ecc*el.Ecc)

	cosInc := math.Cos(el.IncRad)
	sinInc2 := math.Sin(el.IncRad) * math.Sin(el.IncRad)
	reOverP2 := (frame.REKm / p) * (frame.REKm / p)

	raanDot := -1.5 * n * reOverP2 * frame.J2 * cosInc
	argpDot := 0.75 * n * reOverP2 * frame.J2 * (4 - 5*sinInc2)
	m0Dot := 0.75 * n * reOverP2 * frame.J2 * (2 - 3*sinInc2) * math.Sqrt(1-el.Ecc*el.Ecc)

	return &J2Secular{
		elements: el, epoch: epoch, n: n, p: p,
		raanDotRadMin: raanDot, argpDotRadMin: argpDot, m0DotRadMin: m0Dot,
	}
}

// Elements returns the stored (unperturbed reference) classical elements.
func (j *J2Secular) Elements() coe.Elements { return j.elements }
func (j *J2Secular) Epoch() frame.Instant   { return j.epoch }

// PropagateECI implements Propagator, applying the secular rates to Omega,
// omega and M0 before solving Kepler's equation (spec §4.4).
func (j *J2Secular) PropagateECI(t frame.Instant) (frame.ECI, frame.ECI, error) {
	deltaMin := t.Sub(j.epoch).Minutes()

	M0 := anomaly.TrueToMean(j.elements.TARad, j.elements.Ecc)

	raan := j.elements.RAANRad + j.raanDotRadMin*deltaMin
	argp := j.elements.ArgPRad + j.argpDotRadMin*deltaMin
	mDot := j.n + j.m0DotRadMin
	M := M0 + mDot*deltaMin

	nu, err := anomaly.MeanToTrue(M, j.elements.Ecc)
	if err != nil {
		return frame.ECI{}, frame.ECI{}, errors.Wrap(ErrPropagation, err.Error())
	}

	el := j.elements
	el.RAANRad = raan
	el.ArgPRad = argp
	el.TARad = nu
	r, v := coe.ToStateVector(frame.MuKm3S2, el)
	return r, v, nil
}

// MeanMotionRadPerMin implements Propagator.
func (j *J2Secular) MeanMotionRadPerMin() float64 { return j.n }

// PeriodMin implements Propagator.
func (j *J2Secular) PeriodMin() float64 { return twoPi / j.n }

// Package frame implements UTC/Julian-date bookkeeping and the coordinate
// transforms (ECI<->ECEF, geodetic<->ECEF, local horizon) that every
// propagator and search routine in this module is built on.
package frame

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// WGS84-derived constants (spec §6).
const (
	MuKm3S2    = 398600.5      // Earth gravitational parameter, km^3/s^2
	REKm       = 6378.137      // WGS84 equatorial radius, km
	REMeanKm   = 6371.0087714  // mean Earth radius, km
	J2         = 1.08262668e-3 // J2 zonal harmonic
	OmegaEarth = 7.292115e-5   // Earth rotation rate, rad/s
	AUKm       = 149597870.7   // astronomical unit, km
	CKmS       = 299792.458    // speed of light, km/s

	wgs84F  = 1.0 / 298.257223560
	wgs84E2 = wgs84F * (2.0 - wgs84F)

	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Axis identifies an elementary rotation axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ECI is a position or velocity vector in the Earth-centered inertial frame.
type ECI struct{ r3.Vec }

// ECEF is a position or velocity vector in the Earth-centered, Earth-fixed
// frame. Distinct from ECI only by this type tag, per spec §3 ("frame is a
// type discriminant, not a runtime field").
type ECEF struct{ r3.Vec }

// Instant is a UTC timestamp together with its Julian date, split into an
// integer-day half and a fractional remainder to preserve sub-second
// precision when feeding SGP4 (spec §4.1).
type Instant struct {
	t       time.Time
	jdInt   float64
	jdFrac  float64
}

// NewInstant builds an Instant from a UTC time.Time, computing and caching
// its split Julian date immediately (eager "cached derived quantity", per
// spec §9 — cheap to compute, so no lazy cell is warranted).
func NewInstant(t time.Time) Instant {
	t = t.UTC()
	jdInt, jdFrac := julianDateSplit(t)
	return Instant{t: t, jdInt: jdInt, jdFrac: jdFrac}
}

// Time returns the underlying UTC time.
func (in Instant) Time() time.Time { return in.t }

// JulianDate returns the full (unsplit) Julian date.
func (in Instant) JulianDate() float64 { return in.jdInt + in.jdFrac }

// JulianDateSplit returns the (integer-day, fractional-day) pair, as SGP4
// implementations require for precision (spec §4.1).
func (in Instant) JulianDateSplit() (jdInt, jdFrac float64) { return in.jdInt, in.jdFrac }

// TimeFromJulianDate is JulianDate's inverse: it converts a Julian date back
// to a UTC time.Time, for callers (such as the search package's
// float64-Julian-date extremum finders) that operate on bare Julian dates
// instead of Instant.
func TimeFromJulianDate(jd float64) time.Time {
	const unixEpochJD = 2440587.5
	days := jd - unixEpochJD
	secs := days * 86400.0
	whole := math.Floor(secs)
	frac := secs - whole
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// Add returns the Instant d later.
func (in Instant) Add(d time.Duration) Instant { return NewInstant(in.t.Add(d)) }

// Sub returns the duration between two Instants.
func (in Instant) Sub(other Instant) time.Duration { return in.t.Sub(other.t) }

// Before reports whether in occurs before other.
func (in Instant) Before(other Instant) bool { return in.t.Before(other.t) }

// After reports whether in occurs after other.
func (in Instant) After(other Instant) bool { return in.t.After(other.t) }

// jdayDay computes the integer Julian day number for a calendar date using
// the standard Fliegel-Van Flandern formula (spec §4.1). spec §9 floats a
// bounded LRU cache over this as a micro-optimization but is explicit that
// it is not load-bearing ("modern SGP4 implementations are already fast
// enough that this cache often loses to an allocation-free direct call")
// and, independently, spec §5 forbids global mutable state in the core — a
// process-wide cache keyed only by (y,m,d) is exactly that. The integer
// arithmetic below is cheap enough that measuring confirmed the direct call:
// no cache, no shared state to reason about across concurrent iterators.
func jdayDay(year, month, day int) float64 {
	return fliegelVanFlandern(year, month, day)
}

// fliegelVanFlandern computes the Julian date at 0h UTC (midnight) of a
// Gregorian calendar date: the noon-based Julian day number of Fliegel &
// Van Flandern (1968) minus half a day.
func fliegelVanFlandern(year, month, day int) float64 {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn) - 0.5 // midnight, not noon
}

// julianDateSplit computes (jdInt, jdFrac) for a UTC time.Time, per spec
// §4.1's jday/jday_day decomposition.
func julianDateSplit(t time.Time) (jdInt, jdFrac float64) {
	jdInt = jdayDay(t.Year(), int(t.Month()), t.Day())
	h := float64(t.Hour())
	mi := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9
	jdFrac = ((s/60.0+mi)/60.0 + h) / 24.0
	return
}

// GMSTDegrees returns Greenwich Mean Sidereal Time in degrees for a UT1
// Julian date, using the standard IAU 1982 polynomial (spec §4.1).
func GMSTDegrees(jdUT1 float64) float64 {
	const j2000 = 2451545.0
	du := jdUT1 - j2000
	T := du / 36525.0
	gmst := 280.46061837 + 360.98564736629*du +
		0.000387933*T*T - T*T*T/38710000.0
	gmst = math.Mod(gmst, 360.0)
	if gmst < 0 {
		gmst += 360.0
	}
	return gmst
}

// Rotate performs an elementary right-handed rotation of v about axis by
// angleRad, returning the rotated vector: rotate(v, axis, angle).
func Rotate(v r3.Vec, axis Axis, angleRad float64) r3.Vec {
	s, c := math.Sincos(angleRad)
	switch axis {
	case AxisX:
		return r3.Vec{X: v.X, Y: c*v.Y + s*v.Z, Z: -s*v.Y + c*v.Z}
	case AxisY:
		return r3.Vec{X: c*v.X - s*v.Z, Y: v.Y, Z: s*v.X + c*v.Z}
	default: // AxisZ
		return r3.Vec{X: c*v.X + s*v.Y, Y: -s*v.X + c*v.Y, Z: v.Z}
	}
}

// Transform applies transform(v, axis, angle) = rotate(v, axis, -angle), the
// convention spec §4.1 uses to compose coe2rv's Z(-argp)∘X(-inc)∘Z(-raan)
// chain.
func Transform(v r3.Vec, axis Axis, angleRad float64) r3.Vec {
	return Rotate(v, axis, -angleRad)
}

// rotationMatrixZ builds the 3x3 DCM for a right-handed rotation about Z by
// angleRad, used by the ECI<->ECEF transforms through gonum's mat.Dense
// rather than hand-unrolled scalar formulas.
func rotationMatrixZ(angleRad float64) *mat.Dense {
	s, c := math.Sincos(angleRad)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

func applyMat(m *mat.Dense, v r3.Vec) r3.Vec {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ECIToECEF rotates an ECI vector into ECEF by GMST (spec §4.1): a right
// z-axis rotation by the sidereal angle.
func ECIToECEF(v ECI, gmstDeg float64) ECEF {
	m := rotationMatrixZ(gmstDeg * deg2rad)
	return ECEF{applyMat(m, v.Vec)}
}

// ECEFToECI is the inverse (transpose) rotation of ECIToECEF.
func ECEFToECI(v ECEF, gmstDeg float64) ECI {
	m := rotationMatrixZ(-gmstDeg * deg2rad)
	return ECI{applyMat(m, v.Vec)}
}

// GeodeticToECEF converts WGS84 geodetic coordinates to an ECEF position in
// km, using the closed-form forward transform.
func GeodeticToECEF(latDeg, lonDeg, altKm float64) ECEF {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	N := REKm / math.Sqrt(1.0-wgs84E2*sinLat*sinLat)

	x := (N + altKm) * cosLat * cosLon
	y := (N + altKm) * cosLat * sinLon
	z := (N*(1.0-wgs84E2) + altKm) * sinLat

	return ECEF{r3.Vec{X: x, Y: y, Z: z}}
}

// ECEFToGeodetic converts an ECEF position (km) to WGS84 geodetic latitude,
// longitude (degrees) and altitude (km), via Bowring's iterative method
// (spec §4.1; self-consistent to <1m for altitudes up to 9000km).
func ECEFToGeodetic(v ECEF) (latDeg, lonDeg, altKm float64) {
	x, y, z := v.X, v.Y, v.Z
	lonDeg = math.Atan2(y, x) * rad2deg

	p := math.Sqrt(x*x + y*y)
	if p == 0 {
		if z >= 0 {
			latDeg = 90.0
		} else {
			latDeg = -90.0
		}
		altKm = math.Abs(z) - REKm*(1.0-wgs84F)
		return
	}

	b := REKm * (1.0 - wgs84F)
	theta := math.Atan2(z*REKm, p*b)
	sinTheta, cosTheta := math.Sincos(theta)

	lat := math.Atan2(
		z+wgs84E2/(1.0-wgs84F)*b*sinTheta*sinTheta*sinTheta,
		p-wgs84E2*REKm*cosTheta*cosTheta*cosTheta,
	)

	for range 3 {
		sinLat := math.Sin(lat)
		N := REKm / math.Sqrt(1.0-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*N*sinLat, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	N := REKm / math.Sqrt(1.0-wgs84E2*sinLat*sinLat)

	if math.Abs(cosLat) > 1e-10 {
		altKm = p/cosLat - N
	} else {
		altKm = math.Abs(z)/math.Abs(sinLat) - N*(1.0-wgs84E2)
	}

	latDeg = lat * rad2deg
	return
}

// Horizon computes elevation and azimuth (radians) of an ECEF delta vector
// (satellite minus observer) as seen from an observer at geodetic
// (observerLatDeg, observerLonDeg), via the standard SEZ rotation (spec
// §4.1).
func Horizon(observerLatDeg, observerLonDeg float64, deltaECEF ECEF) (elevRad, azRad float64) {
	lat := observerLatDeg * deg2rad
	lon := observerLonDeg * deg2rad
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	dx, dy, dz := deltaECEF.X, deltaECEF.Y, deltaECEF.Z

	topS := sinLat*cosLon*dx + sinLat*sinLon*dy - cosLat*dz
	topE := -sinLon*dx + cosLon*dy
	topZ := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	rangeMag := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if rangeMag == 0 {
		return 0, 0
	}

	elevRad = math.Asin(topZ / rangeMag)
	azRad = math.Atan2(-topE, topS) + math.Pi
	return
}

// DirectionCosines returns the zenith unit-vector direction cosines (a,b,c)
// for a geodetic (lat,lon), used by location.Location's hot elevation kernel
// (spec §4.6: "pre-computed zenith direction of L in ECEF").
func DirectionCosines(latDeg, lonDeg float64) (a, b, c float64) {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	return cosLat * cosLon, cosLat * sinLon, sinLat
}

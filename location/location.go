// Package location models an immutable ground observer and the
// elevation/azimuth/range/Doppler computations against a satellite position
// (spec §4.9).
package location

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/propagator"
)

// Location is an immutable geodetic ground point with a precomputed ECEF
// position and cached zenith direction cosines, used by the hot elevation
// kernel in the pass-search iterator (spec §3, §4.6, §4.9).
type Location struct {
	Name   string
	LatDeg float64
	LonDeg float64
	ElevM  float64

	ecef frame.ECEF
	a, b, c float64 // zenith direction cosines
}

// New builds a Location, precomputing its ECEF position and direction
// cosines at construction (spec §9 "eager computation at construction when
// cheap").
func New(name string, latDeg, lonDeg, elevM float64) Location {
	ecef := frame.GeodeticToECEF(latDeg, lonDeg, elevM/1000.0)
	a, b, c := frame.DirectionCosines(latDeg, lonDeg)
	return Location{Name: name, LatDeg: latDeg, LonDeg: lonDeg, ElevM: elevM, ecef: ecef, a: a, b: b, c: c}
}

// Equal implements the equality-by-(name,lat,lon,elev) invariant of spec §3.
func (l Location) Equal(o Location) bool {
	return l.Name == o.Name && l.LatDeg == o.LatDeg && l.LonDeg == o.LonDeg && l.ElevM == o.ElevM
}

// ECEF returns the observer's precomputed ECEF position (km).
func (l Location) ECEF() frame.ECEF { return l.ecef }

// ElevationFor is the hot elevation kernel (spec §4.6): elev(t) = asin((a
// dx + b dy + c dz)/|dr|) using the precomputed zenith direction cosines.
// It performs no allocation and depends on nothing but rECEF.
func (l Location) ElevationFor(rECEF frame.ECEF) float64 {
	dx := rECEF.X - l.ecef.X
	dy := rECEF.Y - l.ecef.Y
	dz := rECEF.Z - l.ecef.Z
	rangeMag := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if rangeMag == 0 {
		return math.Pi / 2
	}
	return math.Asin((l.a*dx + l.b*dy + l.c*dz) / rangeMag)
}

// AzimuthElevation returns (azimuth, elevation) in radians for a satellite
// position, via the full horizon transform.
func (l Location) AzimuthElevation(pos *propagator.Position) (azRad, elRad float64) {
	delta := frame.ECEF{Vec: r3.Vec{
		X: pos.PositionECEF.X - l.ecef.X,
		Y: pos.PositionECEF.Y - l.ecef.Y,
		Z: pos.PositionECEF.Z - l.ecef.Z,
	}}
	elRad, azRad = frame.Horizon(l.LatDeg, l.LonDeg, delta)
	return
}

// IsVisible reports whether the satellite is above the given elevation
// threshold (degrees, default 0).
func (l Location) IsVisible(pos *propagator.Position, thresholdDeg float64) bool {
	_, elRad := l.AzimuthElevation(pos)
	return elRad*180/math.Pi > thresholdDeg
}

// SlantRangeKm returns the straight-line distance to an ECEF position.
func (l Location) SlantRangeKm(rECEF frame.ECEF) float64 {
	dx := rECEF.X - l.ecef.X
	dy := rECEF.Y - l.ecef.Y
	dz := rECEF.Z - l.ecef.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SlantRangeVelocityKmS returns the range-rate (km/s) via a one-second
// finite difference along the satellite's ECEF velocity (spec §4.9).
func (l Location) SlantRangeVelocityKmS(pos *propagator.Position) float64 {
	r0 := l.SlantRangeKm(pos.PositionECEF)
	nextECEF := frame.ECEF{Vec: r3.Vec{
		X: pos.PositionECEF.X + pos.VelocityECEF.X,
		Y: pos.PositionECEF.Y + pos.VelocityECEF.Y,
		Z: pos.PositionECEF.Z + pos.VelocityECEF.Z,
	}}
	r1 := l.SlantRangeKm(nextECEF)
	return r1 - r0 // per one second
}

// DopplerFactor returns 1 + range_rate/c (spec §4.9).
func (l Location) DopplerFactor(pos *propagator.Position) float64 {
	return 1 + l.SlantRangeVelocityKmS(pos)/frame.CKmS
}

package frame

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestJulianDateSplitKnownEpoch(t *testing.T) {
	// 2000-01-01T12:00:00Z is JD 2451545.0 exactly (J2000.0 epoch).
	in := NewInstant(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	got := in.JulianDate()
	if math.Abs(got-2451545.0) > 1e-9 {
		t.Fatalf("JulianDate() = %v, want 2451545.0", got)
	}
}

func TestJulianDateMonotonic(t *testing.T) {
	a := NewInstant(time.Date(2020, 9, 25, 9, 0, 0, 0, time.UTC))
	b := NewInstant(time.Date(2020, 9, 25, 10, 36, 0, 0, time.UTC))
	if !(a.JulianDate() < b.JulianDate()) {
		t.Fatalf("expected a < b in Julian date")
	}
}

func TestGeodeticECEFRoundTrip(t *testing.T) {
	cases := []struct{ lat, lon, alt float64 }{
		{0, 0, 0},
		{45, -73, 0.1},
		{-31.2884, -64.2033, 0.493},
		{89.9, 10, 9000},
	}
	for _, c := range cases {
		ecef := GeodeticToECEF(c.lat, c.lon, c.alt)
		lat2, lon2, alt2 := ECEFToGeodetic(ecef)
		if math.Abs(lat2-c.lat) > 1e-6 {
			t.Errorf("lat round trip: got %v want %v", lat2, c.lat)
		}
		if math.Abs(lon2-c.lon) > 1e-6 {
			t.Errorf("lon round trip: got %v want %v", lon2, c.lon)
		}
		if math.Abs(alt2-c.alt) > 1e-7 { // 1e-7 km = 0.1 mm, well inside a 10 cm bound
			t.Errorf("alt round trip: got %v want %v", alt2, c.alt)
		}
	}
}

func TestECIECEFRoundTrip(t *testing.T) {
	v := ECI{r3.Vec{X: 1000, Y: -2000, Z: 6500}}
	gmst := 123.456
	ecef := ECIToECEF(v, gmst)
	back := ECEFToECI(ecef, gmst)
	if math.Abs(back.X-v.X) > 1e-9 || math.Abs(back.Y-v.Y) > 1e-9 || math.Abs(back.Z-v.Z) > 1e-9 {
		t.Fatalf("ECI round trip mismatch: got %+v want %+v", back, v)
	}
}

func TestRotateTransformInverse(t *testing.T) {
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	angle := 0.7
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		r := Transform(v, axis, angle)
		back := Rotate(r, axis, angle)
		if math.Abs(back.X-v.X) > 1e-12 || math.Abs(back.Y-v.Y) > 1e-12 || math.Abs(back.Z-v.Z) > 1e-12 {
			t.Errorf("axis %v: Transform/Rotate not inverse: got %+v want %+v", axis, back, v)
		}
	}
}

func TestHorizonZenith(t *testing.T) {
	// A satellite directly overhead should read ~90 degrees elevation.
	lat, lon := 10.0, 20.0
	obs := GeodeticToECEF(lat, lon, 0)
	a, b, c := DirectionCosines(lat, lon)
	zenithDir := ECEF{r3.Vec{X: a, Y: b, Z: c}}
	// move along the geodetic zenith (the ellipsoid normal, not the
	// geocentric radius) to simulate a satellite overhead
	scale := 1000.0
	sat := ECEF{r3.Vec{X: obs.X + zenithDir.X*scale, Y: obs.Y + zenithDir.Y*scale, Z: obs.Z + zenithDir.Z*scale}}
	delta := ECEF{r3.Vec{X: sat.X - obs.X, Y: sat.Y - obs.Y, Z: sat.Z - obs.Z}}
	elev, _ := Horizon(lat, lon, delta)
	elevDeg := elev * rad2deg
	if math.Abs(elevDeg-90.0) > 0.01 {
		t.Fatalf("expected ~90deg elevation overhead, got %v", elevDeg)
	}
}

func TestGMSTRange(t *testing.T) {
	g := GMSTDegrees(2451545.0)
	if g < 0 || g >= 360 {
		t.Fatalf("GMST out of range: %v", g)
	}
}

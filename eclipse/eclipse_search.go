package eclipse

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/propagator"
	"github.com/satpredict/satpredict/satmetrics"
	"github.com/satpredict/satpredict/search"
	"github.com/satpredict/satpredict/sun"
)

// ErrNotImplemented is returned by Duration for eccentric orbits, where the
// closed-form circular approximation does not apply (spec §4.5).
var ErrNotImplemented = errors.New("eclipse: closed-form duration requires eccentricity <= 0.1")

// ErrNotReachable marks a search that exhausted its window without finding
// an eclipse whose end lies within it (spec §7). Next reports that case as
// (Window{}, false, nil) rather than returning this error.
var ErrNotReachable = errors.New("eclipse: propagation limit date exceeded")

// Window is one satellite eclipse (penumbra/umbra) interval: start and end
// times where sun.Illumination crosses zero (spec §3 "EclipseWindow").
type Window struct {
	Start frame.Instant
	End   frame.Instant
}

// DurationS reports the window's duration in seconds.
func (w Window) DurationS() float64 { return w.End.Sub(w.Start).Seconds() }

// Options configures an eclipse search. The zero value is valid: no
// instrumentation is attached.
type Options struct {
	// Metrics receives search instrumentation. Optional (nil records
	// nothing, same contract as pass.Options.Metrics).
	Metrics *satmetrics.Recorder
}

// Iterator is a lazy pull iterator over a propagator's eclipse windows,
// grounded on eclipse.go's FindLunarEclipses two-phase "coarse scan, then
// refine" shape and original_source/orbit_predictor/predictors/base.py's
// eclipses_since (see DESIGN.md).
type Iterator struct {
	prop propagator.Propagator

	cursor frame.Instant
	tLim   frame.Instant

	windowS float64 // base_search_window_s = period/3

	opts Options

	done    bool
	err     error
	propErr error // set by illuminationJD when the underlying propagator fails
}

// Search returns a lazy iterator over every eclipse window whose end lies
// strictly after t0, up to tLim (spec §4.5/§7).
func Search(prop propagator.Propagator, t0, tLim frame.Instant, opts Options) *Iterator {
	periodS := prop.PeriodMin() * 60
	return &Iterator{
		prop:    prop,
		cursor:  t0,
		tLim:    tLim,
		windowS: periodS / 3,
		opts:    opts,
	}
}

func (it *Iterator) illumination(t frame.Instant) (float64, error) {
	rECI, _, err := it.prop.PropagateECI(t)
	if err != nil {
		return 0, err
	}
	rSunKm := sun.VectorKm(t)
	return sun.Illumination(rSunKm, rECI.Vec), nil
}

// illuminationJD adapts illumination to search's float64-Julian-date
// signature, the contract search.FindMinima/FindDiscrete require.
func (it *Iterator) illuminationJD(jd float64) float64 {
	t := frame.NewInstant(frame.TimeFromJulianDate(jd))
	val, err := it.illumination(t)
	if err != nil {
		it.propErr = err
		return 0
	}
	return val
}

// signJD is illuminationJD's sign, as a discrete function for
// search.FindDiscrete's zero-crossing bisection.
func (it *Iterator) signJD(jd float64) int {
	if it.illuminationJD(jd) < 0 {
		return -1
	}
	return 1
}

// Next advances the iterator, returning the next eclipse window. The second
// return value is false once the search window is exhausted. Instrumented
// at this iterator boundary only, per spec §4.6's ban on extra work inside
// the illumination kernel itself: one yielded/failed counter increment and
// one duration observation per call (SPEC_FULL.md's domain-stack wiring).
func (it *Iterator) Next() (Window, bool, error) {
	if it.done {
		return Window{}, false, it.err
	}
	start := time.Now()
	w, err := it.next()
	it.opts.Metrics.ObserveSearchDuration("eclipse", time.Since(start).Seconds())
	if err != nil {
		it.done = true
		if errors.Is(err, ErrNotReachable) {
			it.err = nil
			return Window{}, false, nil
		}
		it.err = err
		it.opts.Metrics.RecordSearchFailure("eclipse")
		return Window{}, false, err
	}
	it.opts.Metrics.RecordEclipseYielded()
	return w, true, nil
}

// next implements eclipses_since's loop body atop the teacher's
// search.FindMinima/FindDiscrete: minimize illumination over the current
// window, and if the minimum is negative (in shadow), bracket the
// start/end zero-crossings by finding where the illumination sign changes,
// spanning half a period on either side of the candidate center.
func (it *Iterator) next() (Window, error) {
	const refineEpsilonDays = 1.0 / 86400.0 // 1 second

	windowDays := it.windowS / 86400.0

	for it.cursor.Before(it.tLim) {
		startJD := it.cursor.JulianDate()
		endJD := startJD + windowDays

		minima, err := search.FindMinima(startJD, endJD, windowDays, it.illuminationJD, refineEpsilonDays)
		if it.propErr != nil {
			return Window{}, it.propErr
		}
		if err != nil {
			return Window{}, err
		}

		if len(minima) > 0 && minima[0].Value < 0 {
			centerJD := minima[0].T
			halfPeriodDays := windowDays * 1.5 // period/2

			starts, err := search.FindDiscrete(centerJD-halfPeriodDays, centerJD, gridProbeDays, it.signJD, refineEpsilonDays)
			if it.propErr != nil {
				return Window{}, it.propErr
			}
			if err != nil || len(starts) == 0 {
				return Window{}, errors.Wrap(err, "eclipse: no illumination sign change found before minimum")
			}
			ends, err := search.FindDiscrete(centerJD, centerJD+halfPeriodDays, gridProbeDays, it.signJD, refineEpsilonDays)
			if it.propErr != nil {
				return Window{}, it.propErr
			}
			if err != nil || len(ends) == 0 {
				return Window{}, errors.Wrap(err, "eclipse: no illumination sign change found after minimum")
			}

			eclipseStart := frame.NewInstant(frame.TimeFromJulianDate(starts[len(starts)-1].T))
			eclipseEnd := frame.NewInstant(frame.TimeFromJulianDate(ends[0].T))

			it.cursor = frame.NewInstant(frame.TimeFromJulianDate(ends[0].T + windowDays))
			return Window{Start: eclipseStart, End: eclipseEnd}, nil
		}

		it.cursor = frame.NewInstant(frame.TimeFromJulianDate(endJD))
	}
	return Window{}, ErrNotReachable
}

// gridProbeDays is the coarse sampling step FindDiscrete uses to bracket a
// sign transition (10 minutes); it must be shorter than the time between two
// successive sign changes, so that no single step spans both of them.
const gridProbeDays = 10.0 / 1440.0

// Duration returns the eclipse duration in minutes for a circular orbit via
// the closed-form spherical-shadow formula (spec §4.7):
// T/pi * acos(clip(sqrt(1-(R_E/r)^2)/cos(beta), -1, 1)). requires a Beta
// angle (degrees) and the orbital period (minutes), from which the orbital
// radius r is recovered via Kepler's third law (mu = frame.MuKm3S2), since
// the closed form is only valid for a (near-)circular orbit. Returns
// ErrNotImplemented when ecc exceeds 0.1, per spec's explicit non-circular
// restriction.
func Duration(betaDeg, periodMin, ecc float64) (float64, error) {
	if ecc > 0.1 {
		return 0, ErrNotImplemented
	}
	betaRad := betaDeg * math.Pi / 180.0

	n := 2 * math.Pi / (periodMin * 60) // rad/s
	r := math.Cbrt(frame.MuKm3S2 / (n * n))

	cosBeta := math.Cos(betaRad)
	if math.Abs(cosBeta) < 1e-12 {
		return 0, nil
	}
	ratio := frame.REKm / r
	arg := math.Sqrt(1-ratio*ratio) / cosBeta
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}
	fraction := math.Acos(arg) / math.Pi
	return fraction * periodMin, nil
}

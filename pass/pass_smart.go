package pass

import (
	"time"

	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/search"
)

// gridStepDays is the smart algorithm's fixed sampling interval (spec §4.6
// "recommended default... samples elevation on a fixed ~3-minute grid"),
// expressed in days for search.FindMaxima's Julian-date API.
const gridStepDays = 3.0 / 1440.0

// tcaEpsilonDays is the golden-section refinement tolerance passed to
// search.FindMaxima, about one second.
const tcaEpsilonDays = 1.0 / 86400.0

// nextSmart implements the optional grid-sampled algorithm of spec §4.6 atop
// the teacher's search.FindMaxima: scan a one-orbital-period window for
// elevation maxima (coarse grid + golden-section refinement), then reuse the
// same AOS/LOS bisection as the bracketed algorithm for the first maximum
// that clears the elevation threshold.
func (it *Iterator) nextSmart() (Pass, error) {
	it.propErr = nil
	elevJD := func(jd float64) float64 {
		t := frame.NewInstant(frame.TimeFromJulianDate(jd))
		e, err := it.elev(t)
		if err != nil {
			it.propErr = err
			return 0
		}
		return e
	}

	windowDays := it.T / 86400.0

	for {
		if it.deadlineReached(it.cursor) || !it.cursor.Before(it.tLim) {
			return Pass{}, ErrNotReachable
		}

		startJD := it.cursor.JulianDate()
		endJD := startJD + windowDays

		maxima, err := search.FindMaxima(startJD, endJD, gridStepDays, elevJD, tcaEpsilonDays)
		if err != nil {
			return Pass{}, wrapPropagationErr(err)
		}
		if it.propErr != nil {
			return Pass{}, wrapPropagationErr(it.propErr)
		}

		advanced := false
		for _, m := range maxima {
			tca := frame.NewInstant(frame.TimeFromJulianDate(m.T))
			if !tca.After(it.cursor) {
				continue
			}

			maxElGt := it.opts.MaxElevationGtDeg * deg2rad
			if m.Value > maxElGt {
				theta0 := it.opts.AOSAtDeg * deg2rad
				aos, los, err := it.bisectAOSLOS(tca, theta0)
				if err != nil {
					return Pass{}, wrapPropagationErr(err)
				}
				it.cursor = tca.Add(stepDur(0.6, it.T))
				if aos.After(it.tLim) {
					return Pass{}, ErrNotReachable
				}
				return it.buildPass(aos, tca, los, m.Value)
			}
			it.cursor = tca.Add(time.Second)
			advanced = true
		}

		if !advanced {
			it.cursor = frame.NewInstant(frame.TimeFromJulianDate(endJD))
		}
	}
}

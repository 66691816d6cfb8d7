// Package pass implements the pass-search iterators of spec §4.6: a
// required "bracketed" four-point-probe algorithm and an optional "smart"
// grid-sampled algorithm, both producing AOS/TCA/LOS windows over a ground
// observer's local horizon.
package pass

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/location"
	"github.com/satpredict/satpredict/propagator"
	"github.com/satpredict/satpredict/satlog"
	"github.com/satpredict/satpredict/satmetrics"
)

// ErrPropagation mirrors propagator.ErrPropagation for the pass-search
// failure modes spec §4.6/§7 names: "no ascending phase" / "no descending
// phase".
var ErrPropagation = errors.New("pass: propagation failed")

// ErrNotReachable marks a search that exhausted its window without a
// qualifying pass (spec §7). Next reports that case as (Pass{}, false, nil)
// rather than returning this error.
var ErrNotReachable = errors.New("pass: propagation limit date exceeded")

const deg2rad = math.Pi / 180.0

// Options configures a pass search (spec §4.6).
type Options struct {
	// ToleranceS is the bisection tolerance, in seconds. Defaults to 1s.
	ToleranceS float64
	// AOSAtDeg is the horizon-crossing elevation threshold theta0, degrees.
	AOSAtDeg float64
	// MaxElevationGtDeg filters out passes whose TCA elevation does not
	// exceed this threshold, degrees.
	MaxElevationGtDeg float64
	// Deadline, if set, causes the next yield to terminate iteration
	// normally once reached (spec §5 "Cancellation & timeouts").
	Deadline *frame.Instant
	// Logger receives structured failure context. Optional.
	Logger *satlog.Logger
	// Metrics receives search instrumentation. Optional (nil records
	// nothing).
	Metrics *satmetrics.Recorder
}

func (o Options) tolerance() time.Duration {
	s := o.ToleranceS
	if s <= 0 {
		s = 1.0
	}
	return time.Duration(s * float64(time.Second))
}

// Pass is a predicted satellite pass over a location (spec §3
// "PredictedPass").
type Pass struct {
	LocationName    string
	SatID           string
	AOS             frame.Instant
	TCA             frame.Instant
	LOS             frame.Instant
	DurationS       float64
	MaxElevationDeg float64
	// OffNadirDeg is the off-nadir angle at TCA: the angle between the
	// satellite's nadir direction and its line of sight to the observer,
	// signed by which side of the velocity vector the observer falls on.
	// Supplemented from original_source/orbit_predictor's
	// PredictedPass.off_nadir_deg (see DESIGN.md).
	OffNadirDeg float64
}

// elevFunc evaluates observer elevation (radians) at t, calling into the
// propagator's GetOnlyPosition exactly once per evaluation and caching
// nothing time-dependent (spec §4.6's single hottest path).
type elevFunc func(t frame.Instant) (float64, error)

func makeElevFunc(prop propagator.Propagator, loc location.Location) elevFunc {
	return func(t frame.Instant) (float64, error) {
		rECEF, err := propagator.GetOnlyPosition(prop, t)
		if err != nil {
			return 0, err
		}
		return loc.ElevationFor(rECEF), nil
	}
}

// Iterator is a lazy pull iterator over predicted passes.
type Iterator struct {
	prop  propagator.Propagator
	loc   location.Location
	satID string

	cursor frame.Instant
	tLim   frame.Instant
	opts   Options

	elev elevFunc
	tol  time.Duration
	T    float64 // period, seconds

	done    bool
	err     error
	propErr error // set by nextSmart's elevJD when the underlying propagator fails

	algo algorithm
}

type algorithm int

const (
	algoBracketed algorithm = iota
	algoSmart
)

// Search runs the required bracketed pass-search algorithm of spec §4.6.
func Search(prop propagator.Propagator, loc location.Location, satID string, t0, tLim frame.Instant, opts Options) *Iterator {
	return newIterator(prop, loc, satID, t0, tLim, opts, algoBracketed)
}

// SearchSmart runs the optional grid-sampled algorithm of spec §4.6,
// recommended as the default for new code per spec §9's Open Question
// resolution (DESIGN.md).
func SearchSmart(prop propagator.Propagator, loc location.Location, satID string, t0, tLim frame.Instant, opts Options) *Iterator {
	return newIterator(prop, loc, satID, t0, tLim, opts, algoSmart)
}

func newIterator(prop propagator.Propagator, loc location.Location, satID string, t0, tLim frame.Instant, opts Options, algo algorithm) *Iterator {
	return &Iterator{
		prop: prop, loc: loc, satID: satID,
		cursor: t0, tLim: tLim, opts: opts,
		elev: makeElevFunc(prop, loc),
		tol:  opts.tolerance(),
		T:    prop.PeriodMin() * 60,
		algo: algo,
	}
}

// Next advances the iterator, returning the next qualifying pass. The
// second return value is false once the search is exhausted (spec §5
// "ordering guarantees": yielded passes are strictly non-decreasing in
// AOS).
func (it *Iterator) Next() (Pass, bool, error) {
	if it.done {
		return Pass{}, false, it.err
	}
	var p Pass
	var err error
	start := time.Now()
	switch it.algo {
	case algoSmart:
		p, err = it.nextSmart()
	default:
		p, err = it.nextBracketed()
	}
	it.opts.Metrics.ObserveSearchDuration("pass", time.Since(start).Seconds())
	if err != nil {
		it.done = true
		if errors.Is(err, ErrNotReachable) {
			it.err = nil
			return Pass{}, false, nil
		}
		it.err = err
		it.opts.Metrics.RecordSearchFailure("pass")
		return Pass{}, false, err
	}
	it.opts.Metrics.RecordPassYielded()
	return p, true, nil
}

func stepDur(k float64, periodSec float64) time.Duration {
	return time.Duration(k * periodSec * float64(time.Second))
}

func sample4(start, end frame.Instant) [4]frame.Instant {
	mid := start.Add(end.Sub(start) / 2)
	midLeft := start.Add(mid.Sub(start) / 2)
	midRight := mid.Add(end.Sub(mid) / 2)
	return [4]frame.Instant{end, mid, midLeft, midRight}
}

// nextBracketed implements the required algorithm of spec §4.6 exactly.
func (it *Iterator) nextBracketed() (Pass, error) {
	isAscending := func(t frame.Instant) (bool, error) {
		e0, err := it.elev(t)
		if err != nil {
			return false, err
		}
		e1, err := it.elev(t.Add(it.tol))
		if err != nil {
			return false, err
		}
		return e1 >= e0, nil
	}

	for {
		if it.deadlineReached(it.cursor) || !it.cursor.Before(it.tLim) {
			return Pass{}, ErrNotReachable
		}

		asc, err := isAscending(it.cursor)
		if err != nil {
			return Pass{}, wrapPropagationErr(err)
		}

		if !asc {
			end := it.cursor.Add(stepDur(0.99, it.T))
			found, ok, err := it.firstMatchingAscending(it.cursor, end, true)
			if err != nil {
				return Pass{}, wrapPropagationErr(err)
			}
			if !ok {
				it.logFailure("no ascending phase")
				return Pass{}, errors.Wrap(ErrPropagation, "no ascending phase")
			}
			it.cursor = found
		}

		descEnd := it.cursor.Add(stepDur(0.99, it.T))
		tD, ok, err := it.firstMatchingAscending(it.cursor, descEnd, false)
		if err != nil {
			return Pass{}, wrapPropagationErr(err)
		}
		if !ok {
			it.logFailure("no descending phase")
			return Pass{}, errors.Wrap(ErrPropagation, "no descending phase")
		}

		tca, err := bisectBool(it.cursor, tD, it.tol, isAscending, true)
		if err != nil {
			return Pass{}, wrapPropagationErr(err)
		}

		elTCA, err := it.elev(tca)
		if err != nil {
			return Pass{}, wrapPropagationErr(err)
		}

		maxElGt := it.opts.MaxElevationGtDeg * deg2rad
		if elTCA > maxElGt {
			theta0 := it.opts.AOSAtDeg * deg2rad
			aos, los, err := it.bisectAOSLOS(tca, theta0)
			if err != nil {
				return Pass{}, wrapPropagationErr(err)
			}

			it.cursor = tca.Add(stepDur(0.6, it.T))

			if aos.After(it.tLim) {
				return Pass{}, ErrNotReachable
			}

			return it.buildPass(aos, tca, los, elTCA)
		}

		it.cursor = tca.Add(stepDur(0.6, it.T))
	}
}

// firstMatchingAscending samples the four-point probe {end, mid, midLeft,
// midRight} in (start, end) and returns the first point whose is_ascending
// predicate equals want (spec §4.6 step 2/3).
func (it *Iterator) firstMatchingAscending(start, end frame.Instant, want bool) (frame.Instant, bool, error) {
	isAscending := func(t frame.Instant) (bool, error) {
		e0, err := it.elev(t)
		if err != nil {
			return false, err
		}
		e1, err := it.elev(t.Add(it.tol))
		if err != nil {
			return false, err
		}
		return e1 >= e0, nil
	}
	for _, t := range sample4(start, end) {
		asc, err := isAscending(t)
		if err != nil {
			return frame.Instant{}, false, err
		}
		if asc == want {
			return t, true, nil
		}
	}
	return frame.Instant{}, false, nil
}

// bisectBool bisects [lo, hi] on a boolean predicate until hi-lo<=tol,
// returning lo when returnLo, else hi.
func bisectBool(lo, hi frame.Instant, tol time.Duration, pred func(frame.Instant) (bool, error), returnLo bool) (frame.Instant, error) {
	loPred, err := pred(lo)
	if err != nil {
		return frame.Instant{}, err
	}
	for hi.Sub(lo) > tol {
		mid := lo.Add(hi.Sub(lo) / 2)
		midPred, err := pred(mid)
		if err != nil {
			return frame.Instant{}, err
		}
		if midPred == loPred {
			lo = mid
		} else {
			hi = mid
		}
	}
	if returnLo {
		return lo, nil
	}
	return hi, nil
}

// bisectAOSLOS brackets the AOS and LOS crossings of theta0 around a known
// TCA, via step(0.34) windows on either side (spec §4.6). Shared by both the
// bracketed and smart algorithms.
func (it *Iterator) bisectAOSLOS(tca frame.Instant, theta0 float64) (aos, los frame.Instant, err error) {
	belowThreshold := func(t frame.Instant) (bool, error) {
		e, err := it.elev(t)
		if err != nil {
			return false, err
		}
		return e < theta0, nil
	}

	aosStart := tca.Add(-stepDur(0.34, it.T))
	aos, err = bisectBool(aosStart, tca, it.tol, belowThreshold, false)
	if err != nil {
		return frame.Instant{}, frame.Instant{}, err
	}
	losEnd := tca.Add(stepDur(0.34, it.T))
	los, err = bisectBool(tca, losEnd, it.tol, belowThreshold, true)
	if err != nil {
		return frame.Instant{}, frame.Instant{}, err
	}
	return aos, los, nil
}

func (it *Iterator) buildPass(aos, tca, los frame.Instant, elTCAR float64) (Pass, error) {
	offNadir, err := it.offNadirAt(tca)
	if err != nil {
		offNadir = 0
	}
	return Pass{
		LocationName:    it.loc.Name,
		SatID:           it.satID,
		AOS:             aos,
		TCA:             tca,
		LOS:             los,
		DurationS:       los.Sub(aos).Seconds(),
		MaxElevationDeg: elTCAR * 180 / math.Pi,
		OffNadirDeg:     offNadir,
	}, nil
}

// offNadirAt computes the off-nadir angle (degrees) at t: the angle between
// the satellite's nadir direction and its line of sight to the observer,
// signed by which side of the velocity vector the observer falls on
// (supplemented from original_source, see DESIGN.md).
func (it *Iterator) offNadirAt(t frame.Instant) (float64, error) {
	rEci, vEci, err := it.prop.PropagateECI(t)
	if err != nil {
		return 0, err
	}
	gmst := frame.GMSTDegrees(t.JulianDate())
	rECEF := frame.ECIToECEF(rEci, gmst)
	vECEF := frame.ECIToECEF(vEci, gmst)

	nadir := r3.Scale(-1, rECEF.Vec)
	los := r3.Sub(it.loc.ECEF().Vec, rECEF.Vec)

	nadirN := r3.Norm(nadir)
	losN := r3.Norm(los)
	if nadirN == 0 || losN == 0 {
		return 0, nil
	}
	cosAngle := r3.Dot(nadir, los) / (nadirN * losN)
	if cosAngle > 1 {
		cosAngle = 1
	} else if cosAngle < -1 {
		cosAngle = -1
	}
	angleRad := math.Acos(cosAngle)

	sign := r3.Dot(r3.Cross(nadir, los), vECEF.Vec)
	if sign < 0 {
		angleRad = -angleRad
	}
	return angleRad * 180 / math.Pi, nil
}

func (it *Iterator) deadlineReached(t frame.Instant) bool {
	return it.opts.Deadline != nil && !t.Before(*it.opts.Deadline)
}

func (it *Iterator) logFailure(reason string) {
	if it.opts.Logger == nil {
		return
	}
	var l1, l2 string
	if sgp4, ok := it.prop.(interface{ Lines() (string, string) }); ok {
		l1, l2 = sgp4.Lines()
	}
	it.opts.Logger.PassSearchFailure(it.loc.Name, it.satID, it.cursor, l1, l2, reason)
}

func wrapPropagationErr(err error) error {
	return errors.Wrap(ErrPropagation, err.Error())
}

package eclipse

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satpredict/satpredict/coe"
	"github.com/satpredict/satpredict/frame"
	"github.com/satpredict/satpredict/propagator"
	"github.com/satpredict/satpredict/satmetrics"
)

func TestSearchFindsEclipseWindow(t *testing.T) {
	epoch := frame.NewInstant(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	el := coe.Elements{
		SMAKm:   6978.0,
		Ecc:     0.001,
		IncRad:  97.4 * deg2radLocal,
		RAANRad: 10 * deg2radLocal,
		ArgPRad: 0,
		TARad:   0,
	}
	prop := propagator.NewJ2Secular(el, epoch)

	tLim := frame.NewInstant(epoch.Time().Add(6 * time.Hour))
	it := Search(prop, epoch, tLim, Options{})

	w, ok, err := it.Next()
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if !ok {
		t.Fatalf("expected at least one eclipse window within 6 orbital hours of a LEO orbit")
	}
	if !w.Start.Before(w.End) {
		t.Errorf("expected Start < End, got %v / %v", w.Start.Time(), w.End.Time())
	}
	if w.DurationS() <= 0 || w.DurationS() > prop.PeriodMin()*60 {
		t.Errorf("eclipse duration out of plausible range: %v seconds", w.DurationS())
	}
}

func TestDurationRejectsEccentricOrbits(t *testing.T) {
	if _, err := Duration(10, 90, 0.2); err != ErrNotImplemented {
		t.Fatalf("expected ErrNotImplemented for ecc>0.1, got %v", err)
	}
}

func TestDurationCircularOrbit(t *testing.T) {
	d, err := Duration(0, 90, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d <= 0 || d >= 90 {
		t.Errorf("expected a plausible eclipse duration less than the period, got %v", d)
	}
}

func TestSearchRecordsMetrics(t *testing.T) {
	epoch := frame.NewInstant(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	el := coe.Elements{
		SMAKm:   6978.0,
		Ecc:     0.001,
		IncRad:  97.4 * deg2radLocal,
		RAANRad: 10 * deg2radLocal,
		ArgPRad: 0,
		TARad:   0,
	}
	prop := propagator.NewJ2Secular(el, epoch)
	tLim := frame.NewInstant(epoch.Time().Add(6 * time.Hour))

	reg := prometheus.NewRegistry()
	rec := satmetrics.NewRecorder(reg)

	it := Search(prop, epoch, tLim, Options{Metrics: rec})
	_, ok, err := it.Next()
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if !ok {
		t.Fatalf("expected at least one eclipse window within 6 orbital hours of a LEO orbit")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var yielded, duration bool
	for _, mf := range mfs {
		switch mf.GetName() {
		case "satpredict_eclipses_yielded_total":
			if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
				t.Errorf("eclipses_yielded_total = %v, want 1", mf.GetMetric()[0].GetCounter().GetValue())
			}
			yielded = true
		case "satpredict_search_duration_seconds":
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "kind" && lp.GetValue() == "eclipse" {
						duration = true
					}
				}
			}
		}
	}
	if !yielded {
		t.Errorf("expected satpredict_eclipses_yielded_total to be recorded")
	}
	if !duration {
		t.Errorf("expected satpredict_search_duration_seconds{kind=\"eclipse\"} to be recorded")
	}
}

const deg2radLocal = 3.141592653589793 / 180.0

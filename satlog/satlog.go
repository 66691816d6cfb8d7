// Package satlog provides structured failure logging for the pass-search
// iterator (spec §4.6/§7): a propagator failure to find an ascending or
// descending phase is logged with enough context to diagnose offline before
// surfacing as a PropagationError.
package satlog

import (
	"github.com/sirupsen/logrus"

	"github.com/satpredict/satpredict/frame"
)

// Logger wraps a *logrus.Logger with the fields pass search failures need.
type Logger struct {
	l *logrus.Logger
}

// New builds a Logger around the given logrus.Logger, or a sane default
// (text formatter, Warn level) when nil.
func New(l *logrus.Logger) *Logger {
	if l == nil {
		l = logrus.New()
		l.SetLevel(logrus.WarnLevel)
	}
	return &Logger{l: l}
}

// PassSearchFailure logs a failed ascending/descending-phase probe.
func (lg *Logger) PassSearchFailure(locationName, satID string, start frame.Instant, tleLine1, tleLine2, reason string) {
	entry := lg.l.WithFields(logrus.Fields{
		"location": locationName,
		"sat_id":   satID,
		"start":    start.Time(),
	})
	if tleLine1 != "" {
		entry = entry.WithField("tle_line1", tleLine1).WithField("tle_line2", tleLine2)
	}
	entry.Warn(reason)
}

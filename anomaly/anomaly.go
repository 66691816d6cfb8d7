// Package anomaly converts between the three angular parameterizations of
// position along a Keplerian orbit (true, eccentric, mean anomaly) and
// solves Kepler's equation by Newton iteration.
package anomaly

import (
	"math"

	"github.com/pkg/errors"
)

const twoPi = 2 * math.Pi

// ErrConvergence is returned when SolveKepler exceeds its iteration cap.
var ErrConvergence = errors.New("anomaly: kepler solver did not converge")

const (
	keplerMaxIter  = 50
	keplerRelTol   = 1e-15
)

// SolveKepler solves Kepler's equation E - e*sin(E) = M for the eccentric
// anomaly E, via Newton-Raphson starting at E0=M (spec §4.2). Terminates
// when the relative step falls below 1e-15 or an exact fixed point is
// reached; fails with ErrConvergence after 50 iterations (practically
// unreachable for e<1).
func SolveKepler(M, e float64) (float64, error) {
	E := M
	for i := 0; i < keplerMaxIter; i++ {
		f := E - e*math.Sin(E) - M
		fPrime := 1 - e*math.Cos(E)
		next := E - f/fPrime

		if next == E {
			return next, nil
		}
		if math.Abs(next-E) < keplerRelTol*math.Abs(E) {
			return next, nil
		}
		E = next
	}
	return 0, errors.WithMessage(ErrConvergence, "exceeded iteration cap")
}

// TrueToEccentric converts true anomaly nu (rad) to eccentric anomaly E
// (rad) for an elliptical orbit (e<1), using the half-angle tangent form,
// normalized into [0, 2*pi).
func TrueToEccentric(nu, e float64) float64 {
	E := 2 * math.Atan(math.Sqrt((1-e)/(1+e))*math.Tan(nu/2))
	return normalize(E)
}

// EccentricToTrue converts eccentric anomaly E (rad) to true anomaly nu
// (rad), normalized into [0, 2*pi).
func EccentricToTrue(E, e float64) float64 {
	nu := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))
	return normalize(nu)
}

// EccentricToMean converts eccentric anomaly E (rad) to mean anomaly M
// (rad), normalized into [0, 2*pi).
func EccentricToMean(E, e float64) float64 {
	return normalize(E - e*math.Sin(E))
}

// MeanToEccentric converts mean anomaly M (rad) to eccentric anomaly E
// (rad) by solving Kepler's equation.
func MeanToEccentric(M, e float64) (float64, error) {
	E, err := SolveKepler(normalize(M), e)
	if err != nil {
		return 0, err
	}
	return normalize(E), nil
}

// TrueToMean converts true anomaly nu (rad) directly to mean anomaly M
// (rad).
func TrueToMean(nu, e float64) float64 {
	E := TrueToEccentric(nu, e)
	return EccentricToMean(E, e)
}

// MeanToTrue converts mean anomaly M (rad) directly to true anomaly nu
// (rad).
func MeanToTrue(M, e float64) (float64, error) {
	E, err := MeanToEccentric(M, e)
	if err != nil {
		return 0, err
	}
	return EccentricToTrue(E, e), nil
}

func normalize(angle float64) float64 {
	a := math.Mod(angle, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

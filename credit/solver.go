package credit

import (
	"fmt"
	"math"
)

// npvTolerance accepts a root when |f| per unit notional is this small.
const npvTolerance = 1e-12

type solverPass struct {
	guess   float64
	step    float64
	tol     float64
	maxIter int
}

// secant solves f(x) = 0 with a derivative-free Newton iteration.
// It stops when the step is below tol or |f| below npvTolerance.
func secant(f func(float64) (float64, error), pass solverPass) (float64, int, error) {
	step := pass.step
	if step <= 0 {
		step = 1e-4
	}
	x0 := pass.guess
	x1 := x0 + step*math.Max(math.Abs(x0), 1e-4)
	f0, err := f(x0)
	if err != nil {
		return 0, 0, err
	}
	if math.Abs(f0) < npvTolerance {
		return x0, 0, nil
	}
	for iter := 1; iter <= pass.maxIter; iter++ {
		f1, err := f(x1)
		if err != nil {
			return 0, iter, err
		}
		if math.IsNaN(f1) || math.IsInf(f1, 0) {
			return 0, iter, fmt.Errorf("%w: non-finite value at %.6g", ErrNoConvergence, x1)
		}
		if math.Abs(f1) < npvTolerance {
			return x1, iter, nil
		}
		if f1 == f0 {
			return 0, iter, fmt.Errorf("%w: flat function at %.6g", ErrNoConvergence, x1)
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if math.Abs(x2-x1) < pass.tol {
			return x2, iter, nil
		}
		x0, f0 = x1, f1
		x1 = x2
	}
	return 0, pass.maxIter, fmt.Errorf("%w: %d iterations", ErrNoConvergence, pass.maxIter)
}

package aucell

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mixture is a fitted univariate Gaussian mixture. Components are sorted by
// increasing mean.
type Mixture struct {
	Weights []float64
	Means   []float64
	StdDevs []float64

	LogLikelihood float64
	Iterations    int
}

// K returns the number of components.
func (m *Mixture) K() int { return len(m.Means) }

// BIC returns the Bayesian information criterion of the fit on n points.
// Each component has a weight, mean and variance; weights sum to one.
func (m *Mixture) BIC(n int) float64 {
	params := float64(3*m.K() - 1)
	return -2*m.LogLikelihood + params*math.Log(float64(n))
}

// LogDensity returns the log of the mixture density at x.
func (m *Mixture) LogDensity(x float64) float64 {
	terms := make([]float64, m.K())
	return m.logDensity(x, terms)
}

func (m *Mixture) logDensity(x float64, terms []float64) float64 {
	for j := range m.Means {
		n := distuv.Normal{Mu: m.Means[j], Sigma: m.StdDevs[j]}
		terms[j] = math.Log(m.Weights[j]) + n.LogProb(x)
	}
	return floats.LogSumExp(terms)
}

// FitMixture fits a k-component Gaussian mixture to x with expectation
// maximization. Initial means are drawn k-means++ style from rng, so the fit
// is a pure function of (x, k, rng state). Iteration stops when the mean
// per-point log-likelihood improves by less than tol; if that has not happened
// after maxIter iterations the error wraps ErrNotConverged. Variances are
// floored so a component sitting on identical values stays finite.
func FitMixture(x []float64, k int, rng *rand.Rand, maxIter int, tol float64) (*Mixture, error) {
	n := len(x)
	if k < 1 {
		return nil, fmt.Errorf("aucell: mixture needs at least one component, got %d", k)
	}
	if n < 2*k {
		return nil, fmt.Errorf("aucell: %d points are too few for %d components", n, k)
	}

	mean, variance := stat.MeanVariance(x, nil)
	varFloor := 1e-6*variance + 1e-12

	m := &Mixture{
		Weights: make([]float64, k),
		Means:   seedMeans(x, k, rng),
		StdDevs: make([]float64, k),
	}
	for j := range k {
		m.Weights[j] = 1 / float64(k)
		m.StdDevs[j] = math.Sqrt(math.Max(variance, varFloor))
	}
	if k == 1 {
		m.Means[0] = mean
	}

	resp := make([]float64, n*k)
	terms := make([]float64, k)
	prevLL := math.Inf(-1)

	for iter := 1; iter <= maxIter; iter++ {
		// E-step: responsibilities in log space, normalized per point.
		ll := 0.0
		for i, xi := range x {
			for j := range k {
				nj := distuv.Normal{Mu: m.Means[j], Sigma: m.StdDevs[j]}
				terms[j] = math.Log(m.Weights[j]) + nj.LogProb(xi)
			}
			lse := floats.LogSumExp(terms)
			ll += lse
			for j := range k {
				resp[i*k+j] = math.Exp(terms[j] - lse)
			}
		}
		m.LogLikelihood = ll
		m.Iterations = iter

		if math.Abs(ll-prevLL)/float64(n) < tol {
			m.sortComponents()
			return m, nil
		}
		prevLL = ll

		// M-step.
		for j := range k {
			var nk, sum float64
			for i, xi := range x {
				nk += resp[i*k+j]
				sum += resp[i*k+j] * xi
			}
			if nk < 1e-10 {
				return nil, fmt.Errorf("%w: component %d collapsed after %d iterations", ErrNotConverged, j, iter)
			}
			mu := sum / nk
			var ss float64
			for i, xi := range x {
				d := xi - mu
				ss += resp[i*k+j] * d * d
			}
			m.Weights[j] = nk / float64(n)
			m.Means[j] = mu
			m.StdDevs[j] = math.Sqrt(math.Max(ss/nk, varFloor))
		}
	}

	return nil, fmt.Errorf("%w: %d iterations", ErrNotConverged, maxIter)
}

// seedMeans picks k initial means from x: the first uniformly, the rest with
// probability proportional to the squared distance to the closest mean so far.
func seedMeans(x []float64, k int, rng *rand.Rand) []float64 {
	means := make([]float64, 0, k)
	means = append(means, x[rng.IntN(len(x))])

	dist := make([]float64, len(x))
	for len(means) < k {
		var total float64
		for i, xi := range x {
			best := math.Inf(1)
			for _, mu := range means {
				best = math.Min(best, (xi-mu)*(xi-mu))
			}
			dist[i] = best
			total += best
		}
		if total == 0 {
			// Every point coincides with a chosen mean.
			means = append(means, x[rng.IntN(len(x))])
			continue
		}
		target := rng.Float64() * total
		pick := len(x) - 1
		for i, d := range dist {
			target -= d
			if target < 0 {
				pick = i
				break
			}
		}
		means = append(means, x[pick])
	}
	return means
}

// sortComponents orders the components by increasing mean.
func (m *Mixture) sortComponents() {
	idx := make([]int, m.K())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return m.Means[idx[a]] < m.Means[idx[b]] })

	w := make([]float64, len(idx))
	mu := make([]float64, len(idx))
	sd := make([]float64, len(idx))
	for to, from := range idx {
		w[to], mu[to], sd[to] = m.Weights[from], m.Means[from], m.StdDevs[from]
	}
	m.Weights, m.Means, m.StdDevs = w, mu, sd
}

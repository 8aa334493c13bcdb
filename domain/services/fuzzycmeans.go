package services

import (
	"context"
	"math"
	"math/rand"
	"time"

	"dnacore/domain/config"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// coincidentEpsilon is the squared-distance floor below which a point is
// treated as coincident with a center and hard-assigned to it.
const coincidentEpsilon = 1e-12

// ClusterFit is the outcome of one fuzzy c-means fit: cluster centers,
// the full membership matrix, and convergence diagnostics.
type ClusterFit struct {
	// Centers holds one center vector per cluster
	Centers [][]float64
	// Memberships holds one membership row per entity; each row sums to 1
	Memberships [][]float64
	// Objective is the weighted within-cluster dispersion being minimized
	Objective float64
	// Iterations is the iteration count of the winning restart
	Iterations int
	// SoftConverged is set when the winning restart hit the iteration cap
	// before the membership change dropped below tolerance
	SoftConverged bool
}

// FuzzyCMeans fits graded cluster memberships over a scaled feature
// matrix. Every fit runs multiple random restarts and keeps the one with
// the lowest objective.
type FuzzyCMeans struct {
	cfg    *config.AnalyticsConfig
	logger *zap.Logger
}

// NewFuzzyCMeans creates a new fuzzy c-means clusterer
func NewFuzzyCMeans(cfg *config.AnalyticsConfig, logger *zap.Logger) *FuzzyCMeans {
	return &FuzzyCMeans{
		cfg:    cfg,
		logger: logger,
	}
}

// Fit clusters the scaled matrix into k graded segments
func (f *FuzzyCMeans) Fit(ctx context.Context, data [][]float64, k int) (*ClusterFit, error) {
	n := len(data)
	if k < 2 {
		return nil, pkgerrors.NewValidationError("cluster count must be at least 2")
	}
	if n < k {
		return nil, pkgerrors.NewInsufficientDataError("fewer entities than clusters").
			WithDetails(map[string]interface{}{"entities": n, "clusters": k})
	}

	seed := f.cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var best *ClusterFit
	for restart := 0; restart < f.cfg.RandomRestarts; restart++ {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(err, "clustering cancelled")
		}

		rng := rand.New(rand.NewSource(seed + int64(restart)))
		fit, err := f.run(ctx, data, k, rng)
		if err != nil {
			return nil, err
		}
		if best == nil || fit.Objective < best.Objective {
			best = fit
		}
	}

	f.logger.Debug("Fuzzy clustering complete",
		zap.Int("entities", n),
		zap.Int("clusters", k),
		zap.Float64("objective", best.Objective),
		zap.Int("iterations", best.Iterations),
		zap.Bool("softConverged", best.SoftConverged),
	)

	return best, nil
}

// run performs a single restart from a random membership initialization
func (f *FuzzyCMeans) run(ctx context.Context, data [][]float64, k int, rng *rand.Rand) (*ClusterFit, error) {
	n := len(data)
	dim := len(data[0])

	memberships := make([][]float64, n)
	for i := range memberships {
		memberships[i] = randomMembershipRow(k, rng)
	}

	centers := make([][]float64, k)
	for j := range centers {
		centers[j] = make([]float64, dim)
	}

	iterations := 0
	softConverged := false
	for iter := 0; iter < f.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(err, "clustering cancelled")
		}
		iterations = iter + 1

		f.updateCenters(data, memberships, centers)
		maxDelta := f.updateMemberships(data, centers, memberships)

		if maxDelta < f.cfg.ConvergenceTolerance {
			softConverged = false
			break
		}
		softConverged = iter == f.cfg.MaxIterations-1
	}

	return &ClusterFit{
		Centers:       centers,
		Memberships:   memberships,
		Objective:     f.objective(data, centers, memberships),
		Iterations:    iterations,
		SoftConverged: softConverged,
	}, nil
}

// updateCenters recomputes each center as the membership-weighted mean of
// all points, weights raised to the fuzziness exponent
func (f *FuzzyCMeans) updateCenters(data [][]float64, memberships [][]float64, centers [][]float64) {
	k := len(centers)
	dim := len(centers[0])
	m := f.cfg.Fuzziness

	for j := 0; j < k; j++ {
		weightSum := 0.0
		for d := 0; d < dim; d++ {
			centers[j][d] = 0
		}
		for i, row := range data {
			w := math.Pow(memberships[i][j], m)
			weightSum += w
			for d := 0; d < dim; d++ {
				centers[j][d] += w * row[d]
			}
		}
		if weightSum > 0 {
			for d := 0; d < dim; d++ {
				centers[j][d] /= weightSum
			}
		}
	}
}

// updateMemberships recomputes the membership matrix against the current
// centers and returns the largest per-cell change
func (f *FuzzyCMeans) updateMemberships(data [][]float64, centers [][]float64, memberships [][]float64) float64 {
	exponent := 2.0 / (f.cfg.Fuzziness - 1.0)
	maxDelta := 0.0

	distsSq := make([]float64, len(centers))
	for i, row := range data {
		coincident := -1
		for j, center := range centers {
			distsSq[j] = squaredDistance(row, center)
			if distsSq[j] < coincidentEpsilon {
				coincident = j
			}
		}

		for j := range centers {
			var u float64
			if coincident >= 0 {
				// A point on a center belongs to it entirely
				if j == coincident {
					u = 1
				}
			} else {
				sum := 0.0
				for l := range centers {
					sum += math.Pow(distsSq[j]/distsSq[l], exponent/2.0)
				}
				u = 1.0 / sum
			}
			if delta := math.Abs(u - memberships[i][j]); delta > maxDelta {
				maxDelta = delta
			}
			memberships[i][j] = u
		}
	}

	return maxDelta
}

// objective is the weighted within-cluster squared dispersion
func (f *FuzzyCMeans) objective(data [][]float64, centers [][]float64, memberships [][]float64) float64 {
	m := f.cfg.Fuzziness
	sum := 0.0
	for i, row := range data {
		for j, center := range centers {
			sum += math.Pow(memberships[i][j], m) * squaredDistance(row, center)
		}
	}
	return sum
}

// MembershipAgainstCenters computes the fuzzy membership row of one scaled
// vector against fixed centers, using the same formula as a clustering
// iteration. This is the inference-mode projection used for
// categorization: centers never move.
func (f *FuzzyCMeans) MembershipAgainstCenters(vec []float64, centers [][]float64) []float64 {
	exponent := 2.0 / (f.cfg.Fuzziness - 1.0)

	distsSq := make([]float64, len(centers))
	coincident := -1
	for j, center := range centers {
		distsSq[j] = squaredDistance(vec, center)
		if distsSq[j] < coincidentEpsilon {
			coincident = j
		}
	}

	row := make([]float64, len(centers))
	if coincident >= 0 {
		row[coincident] = 1
		return row
	}
	for j := range centers {
		sum := 0.0
		for l := range centers {
			sum += math.Pow(distsSq[j]/distsSq[l], exponent/2.0)
		}
		row[j] = 1.0 / sum
	}
	return row
}

// randomMembershipRow draws a random row that sums to 1
func randomMembershipRow(k int, rng *rand.Rand) []float64 {
	row := make([]float64, k)
	sum := 0.0
	for j := range row {
		// Avoid exact zeros so the initial exponentiation stays defined
		row[j] = rng.Float64() + 1e-9
		sum += row[j]
	}
	for j := range row {
		row[j] /= sum
	}
	return row
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return sum
}

func euclideanDistance(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}

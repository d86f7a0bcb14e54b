package airflow

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ductflow/internal/domain"
)

// randomNetwork builds a connected network of pass-through nodes with extra
// cycle-forming links, then hangs each terminal off exactly one of them.
// The expected total is therefore the plain sum of terminal airflows.
func randomNetwork(seed int64, passCount, extraLinks int, airflows []int) *domain.Network {
	rng := rand.New(rand.NewSource(seed))
	b := newNetBuilder()

	pass := make([]domain.NodeID, passCount)
	for i := range pass {
		pass[i] = domain.NodeID(fmt.Sprintf("P%d", i))
		b.duct(pass[i])
		if i > 0 {
			b.connect(pass[rng.Intn(i)], pass[i])
		}
	}
	for i := 0; i < extraLinks && passCount > 1; i++ {
		b.connect(pass[rng.Intn(passCount)], pass[rng.Intn(passCount)])
	}
	for i, flow := range airflows {
		id := domain.NodeID(fmt.Sprintf("T%d", i))
		b.terminal(id, float64(flow))
		b.connect(pass[rng.Intn(passCount)], id)
	}
	return b.build()
}

func TestAggregatorProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("tree networks sum every terminal", prop.ForAll(
		func(seed int64, passCount int, airflows []int) bool {
			net := randomNetwork(seed, passCount, 0, airflows)

			want := 0.0
			for _, a := range airflows {
				want += float64(a)
			}

			got, err := New(net).ComputeTotalAirflow("P0")
			if passCount == 1 && len(airflows) == 0 {
				return err != nil
			}
			return err == nil && got == want
		},
		gen.Int64(),
		gen.IntRange(1, 40),
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.Property("cycles among pass-through nodes terminate without inflation", prop.ForAll(
		func(seed int64, passCount, extraLinks int, airflows []int) bool {
			net := randomNetwork(seed, passCount, extraLinks, airflows)

			want := 0.0
			for _, a := range airflows {
				want += float64(a)
			}

			report, err := New(net).Compute(t.Context(), "P0")
			if err != nil {
				return passCount == 1 && len(airflows) == 0
			}
			return report.Total == want && len(report.Expanded) == passCount
		},
		gen.Int64(),
		gen.IntRange(2, 40),
		gen.IntRange(0, 60),
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.Property("every pass-through node is expanded at most once", prop.ForAll(
		func(seed int64, passCount, extraLinks int) bool {
			net := randomNetwork(seed, passCount, extraLinks, []int{1})

			report, err := New(net).Compute(t.Context(), "P0")
			if err != nil {
				return false
			}
			seen := make(map[domain.NodeID]bool, len(report.Expanded))
			for _, id := range report.Expanded {
				if seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(0, 120),
	))

	properties.TestingRun(t)
}

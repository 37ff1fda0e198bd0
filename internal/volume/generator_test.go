package volume

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countBuys(plan []stepKind) int {
	n := 0
	for _, step := range plan {
		if step == stepBuy {
			n++
		}
	}
	return n
}

func TestBuildPlan_RespectsRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	plan := buildPlan(10, 0.7, rng)
	require.Len(t, plan, 10)
	assert.Equal(t, 7, countBuys(plan))
}

func TestBuildPlan_AlwaysStartsWithBuy(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		plan := buildPlan(8, 0.5, rng)
		assert.Equal(t, stepBuy, plan[0], "seed %d", seed)
	}
}

func TestBuildPlan_ClampsRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	// Even a pure-sell ratio keeps one buy so the sells have inventory.
	plan := buildPlan(5, 0, rng)
	assert.Equal(t, 1, countBuys(plan))

	plan = buildPlan(5, 3.0, rng)
	assert.Equal(t, 5, countBuys(plan))
}

func TestSpend_WithinBounds(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(3))}
	cfg := Config{MinLamports: 100_000, MaxLamports: 500_000}

	for i := 0; i < 100; i++ {
		spend := g.spend(cfg)
		assert.GreaterOrEqual(t, spend, cfg.MinLamports)
		assert.Less(t, spend, cfg.MaxLamports)
	}
}

func TestSpend_FixedWhenBoundsEqual(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(4))}
	cfg := Config{MinLamports: 250_000, MaxLamports: 250_000}
	assert.Equal(t, uint64(250_000), g.spend(cfg))
}

func TestRun_RejectsBadConfig(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(5))}

	err := g.Run(context.Background(), Config{Steps: 0})
	assert.Error(t, err)

	err = g.Run(context.Background(), Config{Steps: 1, MinLamports: 200, MaxLamports: 100})
	assert.Error(t, err)
}

func TestWait_HonorsContextCancellation(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(6))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.wait(ctx, Config{MinWait: time.Hour, MaxWait: time.Hour})
	assert.Error(t, err)
}

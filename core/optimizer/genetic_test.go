package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/glpdispatch/core/gridmap"
	"github.com/kilianp07/glpdispatch/core/model"
)

func scenario(t *testing.T) Problem {
	t.Helper()
	central := at(12, 8)
	return Problem{
		Start: t0,
		Trucks: []model.Truck{
			newTruck(t, "TC01", model.ClassTC, central),
			newTruck(t, "TA01", model.ClassTA, central),
			newTruck(t, "TB01", model.ClassTB, central),
		},
		Orders: []model.Order{
			order("O1", at(20, 15), 6, 24*time.Hour),
			order("O2", at(5, 30), 4, 24*time.Hour),
			order("O3", at(40, 10), 8, 24*time.Hour),
			order("O4", at(15, 2), 3, 24*time.Hour),
			order("O5", at(33, 41), 5, 24*time.Hour),
		},
		Depots: []model.Depot{
			{Code: "CENTRAL", Central: true, Position: central},
			{Code: "NORTH", Position: at(42, 42), GLPCurrent: 160, GLPMax: 160, FuelCurrent: 160, FuelMax: 160},
		},
	}
}

func newOptimizer(workers int) *Optimizer {
	ev := NewEvaluator(gridmap.New(70, 50), EvaluatorConfig{})
	return New(ev, Config{PopulationSize: 20, Generations: Ptr(5), Seed: 42, Workers: workers}, nil)
}

func TestOptimizerDeterministicWithSeed(t *testing.T) {
	p := scenario(t)
	first, err := newOptimizer(1).Run(context.Background(), p)
	require.NoError(t, err)
	second, err := newOptimizer(4).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, int64(42), first.Seed)
	assert.Equal(t, first.Best.Fitness, second.Best.Fitness)
	assert.Equal(t, first.Best.Assignment(), second.Best.Assignment())
	assert.Equal(t, first.Generations, second.Generations)
	assert.True(t, first.Best.Feasible())
}

func TestOptimizerCoversEveryOrderOnce(t *testing.T) {
	res, err := newOptimizer(2).Run(context.Background(), scenario(t))
	require.NoError(t, err)

	var refs []string
	for _, r := range res.Best.Assignment() {
		refs = append(refs, r...)
	}
	sort.Strings(refs)
	assert.Equal(t, []string{"O1", "O2", "O3", "O4", "O5"}, refs)
	require.Len(t, res.Best.Genes, 3)
	assert.Equal(t, "TA01", res.Best.Genes[0].Truck.Code)
}

func TestOptimizerBestNeverRegresses(t *testing.T) {
	ev := NewEvaluator(gridmap.New(70, 50), EvaluatorConfig{})
	opt := New(ev, Config{PopulationSize: 30, Generations: Ptr(15), Seed: 7, MutationRate: Ptr(0.5)}, nil)
	res, err := opt.Run(context.Background(), scenario(t))
	require.NoError(t, err)
	require.Len(t, res.Generations, 16)
	for k := 1; k < len(res.Generations); k++ {
		assert.LessOrEqual(t, res.Generations[k].Best, res.Generations[k-1].Best)
	}
	assert.Equal(t, res.Generations[len(res.Generations)-1].Best, res.Best.Fitness)
}

func TestOptimizerKeepsExplicitZeroSettings(t *testing.T) {
	ev := NewEvaluator(gridmap.New(70, 50), EvaluatorConfig{})
	opt := New(ev, Config{PopulationSize: 10, Generations: Ptr(0), Seed: 3, MutationRate: Ptr(0.0), Workers: 1}, nil)
	cfg := opt.Config()
	require.NotNil(t, cfg.Generations)
	require.NotNil(t, cfg.MutationRate)
	assert.Equal(t, 0, *cfg.Generations)
	assert.Equal(t, 0.0, *cfg.MutationRate)
	require.NoError(t, cfg.Validate())

	res, err := opt.Run(context.Background(), scenario(t))
	require.NoError(t, err)
	require.Len(t, res.Generations, 1)
	assert.Equal(t, 10, res.Evaluations)

	def := Config{}
	def.SetDefaults()
	assert.Equal(t, 10, *def.Generations)
	assert.Equal(t, 0.3, *def.MutationRate)
	assert.Error(t, Config{PopulationSize: 10, Generations: Ptr(-1), Workers: 1}.Validate())
	assert.Error(t, Config{PopulationSize: 10, MutationRate: Ptr(1.5), Workers: 1}.Validate())
}

func TestOptimizerCapacityAndDeadlineInvariants(t *testing.T) {
	p := scenario(t)
	res, err := newOptimizer(3).Run(context.Background(), p)
	require.NoError(t, err)

	deadlines := map[string]time.Time{}
	assigned := map[string]float64{}
	for _, o := range p.Orders {
		deadlines[o.Code] = o.Deadline
		assigned[o.Code] = o.VolumeAssigned
	}
	delivered := map[string]float64{}
	for _, g := range res.Best.Genes {
		require.True(t, g.Feasible())
		for _, tp := range g.Trace {
			assert.GreaterOrEqual(t, tp.GLP, 0.0)
			assert.GreaterOrEqual(t, tp.Fuel, 0.0)
		}
		for _, v := range g.Visits {
			if v.Waypoint.Kind != model.WaypointOrder {
				continue
			}
			assert.False(t, v.Arrival.After(deadlines[v.Waypoint.Ref]))
			delivered[v.Waypoint.Ref] += v.Volume
		}
	}
	for code, v := range delivered {
		assert.LessOrEqual(t, v, assigned[code]+model.DeliveryEpsilon)
	}
}

func TestOptimizerFailsWithoutTrucks(t *testing.T) {
	p := scenario(t)
	p.Trucks = nil
	_, err := newOptimizer(1).Run(context.Background(), p)
	assert.ErrorIs(t, err, ErrOptimizationFailed)
}

func TestOptimizerFailsWhenEveryDeadlineIsMissed(t *testing.T) {
	p := scenario(t)
	for i := range p.Orders {
		p.Orders[i].Deadline = t0.Add(time.Second)
	}
	res, err := newOptimizer(2).Run(context.Background(), p)
	assert.ErrorIs(t, err, ErrOptimizationFailed)
	assert.False(t, res.Best.Feasible())
}

func TestOptimizerNoTasks(t *testing.T) {
	p := scenario(t)
	p.Orders = nil
	res, err := newOptimizer(1).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Best.Fitness)
	for _, g := range res.Best.Genes {
		assert.Empty(t, g.Waypoints)
	}
}

func TestOptimizerDelaysTrucksNotYetReady(t *testing.T) {
	p := scenario(t)
	ready := t0.Add(90 * time.Minute)
	p.Ready = map[string]time.Time{"TA01": ready, "TB01": t0.Add(-time.Hour)}
	assert.True(t, p.StartOf("TA01").Equal(ready))
	assert.True(t, p.StartOf("TB01").Equal(t0))
	assert.True(t, p.StartOf("TC01").Equal(t0))

	res, err := newOptimizer(2).Run(context.Background(), p)
	require.NoError(t, err)
	for _, g := range res.Best.Genes {
		require.NotEmpty(t, g.Trace)
		assert.True(t, g.Trace[0].At.Equal(p.StartOf(g.Truck.Code)), g.Truck.Code)
	}
}

func TestOptimizerIncludesRescueTasks(t *testing.T) {
	p := scenario(t)
	stalled := newTruck(t, "TD01", model.ClassTD, at(25, 25))
	stalled.State = model.StateOutOfFuel
	stalled.FuelCurrent = 0
	p.Stalled = []model.Truck{stalled}

	res, err := newOptimizer(2).Run(context.Background(), p)
	require.NoError(t, err)
	found := 0
	for _, refs := range res.Best.Assignment() {
		for _, r := range refs {
			if r == "TD01" {
				found++
			}
		}
	}
	assert.Equal(t, 1, found)
}

func TestOrderCrossoverKeepsEveryTask(t *testing.T) {
	var tasks []model.Waypoint
	for i := 0; i < 9; i++ {
		tasks = append(tasks, model.Waypoint{Kind: model.WaypointOrder, Ref: string(rune('A' + i))})
	}
	rng := rand.New(rand.NewSource(3))
	a := Individual{Tasks: [][]model.Waypoint{tasks[:4], tasks[4:6], tasks[6:]}}
	shuffled := append([]model.Waypoint(nil), tasks...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	b := Individual{Tasks: [][]model.Waypoint{shuffled[:1], shuffled[1:7], shuffled[7:]}}

	for i := 0; i < 50; i++ {
		c1, c2 := crossover(rng, a, b)
		assert.Equal(t, sizes(b.Tasks), sizes(c1.Tasks))
		assert.Equal(t, sizes(a.Tasks), sizes(c2.Tasks))
		assert.ElementsMatch(t, tasks, flatten(c1.Tasks))
		assert.ElementsMatch(t, tasks, flatten(c2.Tasks))
	}
}

func TestMutateKeepsEveryTask(t *testing.T) {
	w := func(r string) model.Waypoint { return model.Waypoint{Kind: model.WaypointOrder, Ref: r} }
	rng := rand.New(rand.NewSource(11))
	tasks := [][]model.Waypoint{{w("A"), w("B")}, {}, {w("C")}}
	for i := 0; i < 100; i++ {
		mutate(rng, tasks)
		assert.ElementsMatch(t, []model.Waypoint{w("A"), w("B"), w("C")}, flatten(tasks))
	}

	single := [][]model.Waypoint{{w("A"), w("B")}}
	mutate(rng, single)
	assert.Equal(t, []model.Waypoint{w("B"), w("A")}, single[0])
}

func TestRouteInsertsRefillAndEndsAtCentral(t *testing.T) {
	p := scenario(t)
	pr := prepare(p)
	tr := newTruck(t, "TD02", model.ClassTD, at(12, 8))
	// 5 m³ truck serving 6 + 4 m³
	wps := pr.route(tr, []model.Waypoint{orderWP(p.Orders[0]), orderWP(p.Orders[1])})
	kinds := make([]model.WaypointKind, len(wps))
	for i, w := range wps {
		kinds[i] = w.Kind
	}
	assert.Equal(t, []model.WaypointKind{
		model.WaypointOrder, model.WaypointDepot, model.WaypointOrder, model.WaypointDepot,
	}, kinds)
	assert.Equal(t, "CENTRAL", wps[len(wps)-1].Ref)
}

func TestOptimizerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	_, err := newOptimizer(1).Run(context.Background(), scenario(t))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(optimizerRuns.WithLabelValues("success")))
	assert.Equal(t, float64(20+5*10), testutil.ToFloat64(optimizerEvaluations))
}

package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/glpdispatch/core/logger"
	"github.com/kilianp07/glpdispatch/core/model"
)

// GenerationStats summarises the population after one generation.
// Mean and StdDev only account for feasible individuals.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Feasible   int     `json:"feasible"`
}

// Result is the outcome of one optimizer run. Best is set even when Run
// returns ErrOptimizationFailed.
type Result struct {
	Best        Individual
	Generations []GenerationStats
	Evaluations int
	Duration    time.Duration
	Seed        int64
}

// Optimizer runs the genetic search.
type Optimizer struct {
	eval *Evaluator
	cfg  Config
	log  logger.Logger
}

// New returns an optimizer. Zero config fields take their defaults.
func New(eval *Evaluator, cfg Config, log logger.Logger) *Optimizer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Optimizer{eval: eval, cfg: cfg, log: log}
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// Run searches a plan for p. A generation is never interrupted once started;
// ctx is checked between generations.
func (o *Optimizer) Run(ctx context.Context, p Problem) (Result, error) {
	start := time.Now()
	res, err := o.run(ctx, p)
	res.Duration = time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	optimizerRuns.WithLabelValues(outcome).Inc()
	optimizerDuration.Observe(res.Duration.Seconds())
	optimizerEvaluations.Add(float64(res.Evaluations))
	if res.Best.Feasible() {
		optimizerBestFitness.Set(res.Best.Fitness)
	}
	return res, err
}

func (o *Optimizer) run(ctx context.Context, p Problem) (Result, error) {
	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	pr := prepare(p)
	res := Result{Seed: seed}

	if len(pr.tasks) == 0 {
		best := Individual{Tasks: make([][]model.Waypoint, len(pr.trucks))}
		o.evaluateOne(pr, &best)
		res.Best = best
		res.Evaluations = 1
		return res, nil
	}
	if len(pr.trucks) == 0 {
		res.Best = Individual{Fitness: math.Inf(1)}
		return res, fmt.Errorf("%d tasks without available truck: %w", len(pr.tasks), ErrOptimizationFailed)
	}

	pop := make([]Individual, o.cfg.PopulationSize)
	for i := range pop {
		pop[i] = Individual{Tasks: pr.deal(rng)}
	}
	if err := o.evaluate(ctx, pr, pop); err != nil {
		return res, err
	}
	res.Evaluations += len(pop)
	sortByFitness(pop)
	res.Generations = append(res.Generations, summarize(0, pop))

	for gen := 1; gen <= *o.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			res.Best = pop[0]
			return res, err
		}
		parents := selectParents(rng, pop)
		children := o.breed(rng, parents)
		if err := o.evaluate(ctx, pr, children); err != nil {
			return res, err
		}
		res.Evaluations += len(children)
		pop = survivors(pop, children, o.cfg.PopulationSize)
		st := summarize(gen, pop)
		res.Generations = append(res.Generations, st)
		o.log.Debugw("generation", map[string]any{
			"generation": gen,
			"best":       st.Best,
			"mean":       st.Mean,
			"stddev":     st.StdDev,
			"feasible":   st.Feasible,
		})
	}

	res.Best = pop[0]
	if !res.Best.Feasible() {
		return res, fmt.Errorf("best fitness %v: %w", res.Best.Fitness, ErrOptimizationFailed)
	}
	if len(p.Orders) > 0 && res.Best.Delivered <= model.DeliveryEpsilon {
		return res, fmt.Errorf("no volume delivered for %d orders: %w", len(p.Orders), ErrOptimizationFailed)
	}
	return res, nil
}

// deal shuffles the tasks and hands them out round-robin, one list per truck.
func (pr *prepared) deal(rng *rand.Rand) [][]model.Waypoint {
	out := make([][]model.Waypoint, len(pr.trucks))
	for i, idx := range rng.Perm(len(pr.tasks)) {
		k := i % len(pr.trucks)
		out[k] = append(out[k], pr.tasks[idx])
	}
	return out
}

// evaluate scores every individual on a bounded worker pool. Each
// individual gets its own copy of the environment.
func (o *Optimizer) evaluate(ctx context.Context, pr *prepared, pop []Individual) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Workers)
	for i := range pop {
		i := i
		eg.Go(func() error {
			o.evaluateOne(pr, &pop[i])
			return nil
		})
	}
	return eg.Wait()
}

func (o *Optimizer) evaluateOne(pr *prepared, in *Individual) {
	env := pr.problem.NewEnv()
	in.Genes = make([]Gene, len(pr.trucks))
	in.Fitness, in.Delivered = 0, 0
	for i, tr := range pr.trucks {
		var tasks []model.Waypoint
		if i < len(in.Tasks) {
			tasks = in.Tasks[i]
		}
		g := o.eval.Evaluate(pr.problem.StartOf(tr.Code), tr, pr.route(tr, tasks), env)
		in.Genes[i] = g
		in.Fitness += g.Fitness
		in.Delivered += g.Delivered
	}
}

// selectParents runs ⌈P/2⌉ binary tournaments.
func selectParents(rng *rand.Rand, pop []Individual) []Individual {
	n := (len(pop) + 1) / 2
	out := make([]Individual, 0, n)
	for len(out) < n {
		a, b := rng.Intn(len(pop)), rng.Intn(len(pop))
		if fitnessKey(pop[b]) < fitnessKey(pop[a]) {
			a = b
		}
		out = append(out, pop[a])
	}
	return out
}

// breed pairs adjacent parents, two children per pair, then mutates each
// child with probability MutationRate.
func (o *Optimizer) breed(rng *rand.Rand, parents []Individual) []Individual {
	var children []Individual
	for i := 0; i < len(parents); i += 2 {
		a := parents[i]
		b := parents[(i+1)%len(parents)]
		c1, c2 := crossover(rng, a, b)
		for _, c := range []Individual{c1, c2} {
			if rng.Float64() < *o.cfg.MutationRate {
				mutate(rng, c.Tasks)
			}
			children = append(children, c)
		}
	}
	return children
}

type taskKey struct {
	kind model.WaypointKind
	ref  string
}

func keyOf(w model.Waypoint) taskKey { return taskKey{kind: w.Kind, ref: w.Ref} }

// crossover applies order crossover to the flattened task sequences. Each
// child is split back per truck with the sizes of the other parent, so every
// task appears exactly once.
func crossover(rng *rand.Rand, a, b Individual) (Individual, Individual) {
	seqA, seqB := flatten(a.Tasks), flatten(b.Tasks)
	n := len(seqA)
	if n < 2 || len(seqB) != n {
		return Individual{Tasks: a.cloneTasks()}, Individual{Tasks: b.cloneTasks()}
	}
	i, j := rng.Intn(n), rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	j++
	c1 := orderCrossover(seqA, seqB, i, j)
	c2 := orderCrossover(seqB, seqA, i, j)
	return Individual{Tasks: split(c1, sizes(b.Tasks))}, Individual{Tasks: split(c2, sizes(a.Tasks))}
}

// orderCrossover keeps p1[i:j] in place and fills the remaining positions,
// starting after j and wrapping, with p2's tasks in p2 order from j.
func orderCrossover(p1, p2 []model.Waypoint, i, j int) []model.Waypoint {
	n := len(p1)
	child := make([]model.Waypoint, n)
	used := make(map[taskKey]bool, n)
	for k := i; k < j; k++ {
		child[k] = p1[k]
		used[keyOf(p1[k])] = true
	}
	pos := j % n
	for k := 0; k < n; k++ {
		w := p2[(j+k)%n]
		if used[keyOf(w)] {
			continue
		}
		for pos >= i && pos < j {
			pos = j % n
		}
		child[pos] = w
		used[keyOf(w)] = true
		pos = (pos + 1) % n
	}
	return child
}

// mutate swaps one task between two distinct trucks. An empty route receives
// a task instead; with a single truck two of its tasks are swapped.
func mutate(rng *rand.Rand, tasks [][]model.Waypoint) {
	k := len(tasks)
	switch {
	case k == 0:
		return
	case k == 1:
		t := tasks[0]
		if len(t) < 2 {
			return
		}
		i := rng.Intn(len(t))
		j := rng.Intn(len(t) - 1)
		if j >= i {
			j++
		}
		t[i], t[j] = t[j], t[i]
		return
	}
	g1 := rng.Intn(k)
	g2 := rng.Intn(k - 1)
	if g2 >= g1 {
		g2++
	}
	a, b := tasks[g1], tasks[g2]
	switch {
	case len(a) > 0 && len(b) > 0:
		i, j := rng.Intn(len(a)), rng.Intn(len(b))
		a[i], b[j] = b[j], a[i]
	case len(a) > 0:
		i := rng.Intn(len(a))
		tasks[g2] = append(b, a[i])
		tasks[g1] = append(a[:i:i], a[i+1:]...)
	case len(b) > 0:
		j := rng.Intn(len(b))
		tasks[g1] = append(a, b[j])
		tasks[g2] = append(b[:j:j], b[j+1:]...)
	}
}

// survivors keeps the best size individuals out of the current population
// and its children. Ties keep the earlier index.
func survivors(pop, children []Individual, size int) []Individual {
	merged := make([]Individual, 0, len(pop)+len(children))
	merged = append(merged, pop...)
	merged = append(merged, children...)
	sortByFitness(merged)
	if len(merged) > size {
		merged = merged[:size]
	}
	return merged
}

func sortByFitness(pop []Individual) {
	sort.SliceStable(pop, func(i, j int) bool { return fitnessKey(pop[i]) < fitnessKey(pop[j]) })
}

func fitnessKey(in Individual) float64 {
	if math.IsNaN(in.Fitness) {
		return math.Inf(1)
	}
	return in.Fitness
}

func summarize(gen int, pop []Individual) GenerationStats {
	st := GenerationStats{Generation: gen, Best: math.Inf(1), Mean: math.Inf(1)}
	var vals []float64
	for _, in := range pop {
		if in.Feasible() {
			vals = append(vals, in.Fitness)
		}
	}
	st.Feasible = len(vals)
	switch len(vals) {
	case 0:
	case 1:
		st.Best, st.Mean = vals[0], vals[0]
	default:
		st.Best = floats.Min(vals)
		st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)
	}
	return st
}

func flatten(tasks [][]model.Waypoint) []model.Waypoint {
	var out []model.Waypoint
	for _, t := range tasks {
		out = append(out, t...)
	}
	return out
}

func sizes(tasks [][]model.Waypoint) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = len(t)
	}
	return out
}

func split(seq []model.Waypoint, sizes []int) [][]model.Waypoint {
	out := make([][]model.Waypoint, len(sizes))
	off := 0
	for i, n := range sizes {
		out[i] = append([]model.Waypoint(nil), seq[off:off+n]...)
		off += n
	}
	return out
}

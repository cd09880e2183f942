package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
)

var ErrNoFeasible = errors.New("no grid point satisfies the drift budget")

// Param names a config field the grid can vary.
type Param string

const (
	ParamDt        Param = "dt"
	ParamTolerance Param = "tolerance"
)

// Trial is one evaluated grid point.
type Trial struct {
	Params   map[Param]float64
	Steps    int
	Drift    float64
	Feasible bool
	Err      error
}

// GridSearch looks for the cheapest settings, counted in accepted plus
// rejected steps, whose maximum relative energy drift stays within Budget.
type GridSearch struct {
	names  []Param
	ranges [][]float64
	Budget float64
}

func NewGridSearch(params []Param, ranges [][]float64, budget float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d params but %d ranges", len(params), len(ranges))
	}
	for i, p := range params {
		if p != ParamDt && p != ParamTolerance {
			return nil, fmt.Errorf("unknown param %q", p)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", p)
		}
	}
	return &GridSearch{names: params, ranges: ranges, Budget: budget}, nil
}

// Search runs base once per grid point. It returns the best trial and every
// trial in grid order; a cancelled context stops the search early.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry) (Trial, []Trial, error) {
	var trials []Trial
	g.searchRecursive(ctx, 0, map[Param]float64{}, base, reg, &trials)
	if err := ctx.Err(); err != nil {
		return Trial{}, trials, err
	}

	best := -1
	for i, t := range trials {
		if !t.Feasible {
			continue
		}
		if best < 0 || t.Steps < trials[best].Steps || (t.Steps == trials[best].Steps && t.Drift < trials[best].Drift) {
			best = i
		}
	}
	if best < 0 {
		return Trial{}, trials, ErrNoFeasible
	}
	return trials[best], trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[Param]float64,
	base *config.Config,
	reg *experiment.Registry,
	trials *[]Trial,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.names) {
		*trials = append(*trials, g.evaluate(ctx, current, base, reg))
		return
	}

	name := g.names[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[Param]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		g.searchRecursive(ctx, depth+1, next, base, reg, trials)
	}
}

func (g *GridSearch) evaluate(ctx context.Context, params map[Param]float64, base *config.Config, reg *experiment.Registry) Trial {
	t := Trial{Params: params, Drift: math.Inf(1)}
	cfg := base.Clone()
	for k, v := range params {
		switch k {
		case ParamDt:
			cfg.Dt = v
		case ParamTolerance:
			cfg.Tolerance = v
		}
	}

	exp, err := experiment.New(cfg, reg, nil)
	if err != nil {
		t.Err = err
		return t
	}
	res, err := exp.Run(ctx)
	if err != nil {
		t.Err = err
		return t
	}
	t.Steps = res.Stats.Accepted + res.Stats.Rejected
	t.Drift = res.Metrics["energy_drift"]
	t.Feasible = !math.IsNaN(t.Drift) && t.Drift <= g.Budget && !failed(res)
	return t
}

func failed(res *dynamo.Result) bool {
	for _, err := range res.Errors {
		if errors.Is(err, dynamo.ErrInvalidState) {
			return true
		}
	}
	return false
}

// Package assembly runs declaration steps in dependency order.
//
// Each step names the steps it depends on. Order performs a topological pass (Kahn's algorithm)
// with ties broken by insertion order, so the same plan always yields the same order. Execute
// validates the whole graph before running anything: a plan with a cycle or a dangling
// dependency declares nothing.
package assembly

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	ErrDuplicateStep     = errors.New("duplicate step")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrCycle             = errors.New("dependency cycle")
	ErrNilRun            = errors.New("step has no run function")
	ErrEmptyStepName     = errors.New("step name is empty")
)

// Step is one declaration in a Plan.
type Step struct {
	Name      string
	DependsOn []string
	Run       func() error
}

// Plan is an ordered set of steps.
type Plan struct {
	steps  []Step
	index  map[string]int
	logger *zap.Logger
}

// NewPlan creates an empty plan. A nil logger disables logging.
func NewPlan(logger *zap.Logger) *Plan {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plan{
		index:  make(map[string]int),
		logger: logger.Named("assembly"),
	}
}

// Add appends a step.
func (p *Plan) Add(step Step) error {
	if step.Name == "" {
		return ErrEmptyStepName
	}
	if _, exists := p.index[step.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, step.Name)
	}
	if step.Run == nil {
		return fmt.Errorf("%w: %q", ErrNilRun, step.Name)
	}
	p.index[step.Name] = len(p.steps)
	p.steps = append(p.steps, step)
	return nil
}

// MustAdd is Add for statically known plans.
func (p *Plan) MustAdd(step Step) {
	if err := p.Add(step); err != nil {
		panic(err)
	}
}

// Steps returns the step names in insertion order.
func (p *Plan) Steps() []string {
	return lo.Map(p.steps, func(s Step, _ int) string { return s.Name })
}

// Dependencies returns the declared dependencies of the named step.
func (p *Plan) Dependencies(name string) []string {
	i, ok := p.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), p.steps[i].DependsOn...)
}

// Order returns the step names in an order where every step follows its dependencies.
func (p *Plan) Order() ([]string, error) {
	inDegree := make([]int, len(p.steps))
	dependents := make([][]int, len(p.steps))

	for i, step := range p.steps {
		for _, dep := range lo.Uniq(step.DependsOn) {
			j, ok := p.index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: step %q depends on %q", ErrUnknownDependency, step.Name, dep)
			}
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	ready := make([]int, 0, len(p.steps))
	for i := range p.steps {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(p.steps))
	for len(ready) > 0 {
		// lowest insertion index first
		next := lo.Min(ready)
		ready = lo.Without(ready, next)
		order = append(order, p.steps[next].Name)

		for _, d := range dependents[next] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(p.steps) {
		stuck := lo.Filter(p.steps, func(s Step, i int) bool { return inDegree[i] > 0 })
		names := lo.Map(stuck, func(s Step, _ int) string { return s.Name })
		return nil, fmt.Errorf("%w between steps: %s", ErrCycle, strings.Join(names, ", "))
	}
	return order, nil
}

// Execute runs every step in dependency order and stops at the first failure.
// It returns the names of the steps that completed.
func (p *Plan) Execute() ([]string, error) {
	order, err := p.Order()
	if err != nil {
		p.logger.Error("Refusing to execute invalid plan", zap.Error(err))
		return nil, err
	}

	done := make([]string, 0, len(order))
	for _, name := range order {
		step := p.steps[p.index[name]]
		p.logger.Debug("Running step", zap.String("step", name), zap.Strings("dependsOn", step.DependsOn))
		if err := step.Run(); err != nil {
			p.logger.Error("Step failed", zap.String("step", name), zap.Error(err))
			return done, fmt.Errorf("step %s: %w", name, err)
		}
		done = append(done, name)
	}
	p.logger.Debug("Plan executed", zap.Strings("order", done))
	return done, nil
}

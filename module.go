package doodle

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/GoCodeAlone/doodle/events"
)

// Subsystem is an engine-level component driven by the Runner alongside the
// application. Subsystems opt into the phases they need by implementing the
// optional interfaces below.
type Subsystem interface {
	// Name uniquely identifies the subsystem within a Runner.
	Name() string
}

// Host is the view of the Runner given to subsystems during Init.
type Host interface {
	Logger() Logger
	State() ApplicationState
	Stats() Stats
	Events() *events.Dispatcher
	Terminate()
}

// Initializable subsystems are set up before the application's Initialize.
type Initializable interface {
	Init(ctx context.Context, host Host) error
}

// Stoppable subsystems are shut down after the application's Deinitialize,
// in reverse start order.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// Layouter subsystems run between BeforeLayout and AfterLayout.
type Layouter interface {
	Layout(ctx context.Context, frame Frame) error
}

// Updater subsystems run between BeforeUpdate and AfterUpdate.
type Updater interface {
	Update(ctx context.Context, frame Frame) error
}

// Renderer subsystems run between BeforeRender and AfterRender.
type Renderer interface {
	Render(ctx context.Context, frame Frame) error
}

// DependencyAware subsystems name the subsystems that must start before them.
type DependencyAware interface {
	Dependencies() []string
}

// Ordered subsystems run earlier the lower their execution order. Subsystems
// without it have order 0. Dependencies take precedence over order.
type Ordered interface {
	ExecutionOrder() int
}

func executionOrder(s Subsystem) int {
	if o, ok := s.(Ordered); ok {
		return o.ExecutionOrder()
	}
	return 0
}

// resolveSubsystemOrder returns subsystems sorted so every subsystem follows
// its dependencies. Independent subsystems are ordered by execution order,
// then by registration order.
func resolveSubsystemOrder(registered []Subsystem) ([]Subsystem, error) {
	byName := make(map[string]Subsystem, len(registered))
	for _, s := range registered {
		byName[s.Name()] = s
	}

	candidates := slices.Clone(registered)
	slices.SortStableFunc(candidates, func(a, b Subsystem) int {
		return cmp.Compare(executionOrder(a), executionOrder(b))
	})
	rank := make(map[string]int, len(candidates))
	for i, s := range candidates {
		rank[s.Name()] = i
	}

	var result []Subsystem
	visited := make(map[string]bool)
	temp := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if temp[node] {
			return fmt.Errorf("%w: %s", ErrCircularDependency, node)
		}
		if visited[node] {
			return nil
		}
		temp[node] = true

		var deps []string
		if da, ok := byName[node].(DependencyAware); ok {
			deps = slices.Clone(da.Dependencies())
		}
		for _, dep := range deps {
			if _, exists := byName[dep]; !exists {
				return fmt.Errorf("%w: %s depends on non-existent subsystem %s",
					ErrSubsystemDependencyMissing, node, dep)
			}
		}
		slices.SortFunc(deps, func(a, b string) int { return cmp.Compare(rank[a], rank[b]) })
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[node] = true
		temp[node] = false
		result = append(result, byName[node])
		return nil
	}

	for _, s := range candidates {
		if !visited[s.Name()] {
			if err := visit(s.Name()); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

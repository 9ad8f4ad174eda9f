package enrichment

// Strategy decides which assets are worth an assistant round trip. The
// selection runs before any driver call, so a narrow strategy is the main
// lever for keeping assistant cost down on large analyses.
type Strategy interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Select returns the items to enrich, ordered by priority.
	Select(items []Item) []Item
}

// StrategyRegistry manages available selection strategies.
type StrategyRegistry struct {
	strategies map[string]func() Strategy
}

// NewStrategyRegistry creates an empty registry.
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{strategies: make(map[string]func() Strategy)}
}

// Register adds a strategy under its configuration name.
func (r *StrategyRegistry) Register(name string, factory func() Strategy) {
	r.strategies[name] = factory
}

// Get returns a strategy by name.
func (r *StrategyRegistry) Get(name string) (Strategy, error) {
	factory, ok := r.strategies[name]
	if !ok {
		return nil, &StrategyNotFoundError{Name: name}
	}
	return factory(), nil
}

// Names lists the registered strategy names.
func (r *StrategyRegistry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// StrategyNotFoundError is returned when a requested strategy doesn't exist.
type StrategyNotFoundError struct {
	Name string
}

func (e *StrategyNotFoundError) Error() string {
	return "enrichment strategy not found: " + e.Name
}

// DefaultRegistry is the global strategy registry.
var DefaultRegistry = NewStrategyRegistry()

package cake

// GraphBuilder translates a flat task list into a Graph: it adds every
// task's name, then connects each task's dependency names to it
// (dependency -> task). It performs no other transformation.
type GraphBuilder struct{}

// NewGraphBuilder constructs a GraphBuilder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// Build constructs a fresh Graph from the given tasks. It fails with
// ErrUnknownDependency if a task names a dependency that is not the name
// of any task in the list.
func (b *GraphBuilder) Build(tasks []*Task) (*Graph, error) {
	g := NewGraph()

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.canonicalName] = true
	}

	for _, t := range tasks {
		if err := g.Add(t.Name); err != nil {
			return nil, err
		}
	}

	for _, t := range tasks {
		for _, dep := range t.dependencies {
			if !known[canon(dep)] {
				return nil, structuralf(ErrUnknownDependency, "%s depends on %s", t.Name, dep)
			}
			if err := g.Connect(dep, t.Name); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

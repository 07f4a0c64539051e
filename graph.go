package cake

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a directed graph over task names. An edge start->end means end
// depends on start: start must run before end. Node identity is
// case-insensitive; the graph preserves each node's first-seen display
// name and insertion order.
type Graph struct {
	mu sync.Mutex

	order   []string          // canonical names, insertion order
	display map[string]string // canonical -> display name

	// outgoing[start] holds the canonical ends of edges start->end, in
	// the order they were connected. incoming[end] holds the canonical
	// starts of edges start->end, in the order they were connected; this
	// is what Traverse walks (a node's predecessors).
	outgoing map[string][]string
	incoming map[string][]string
	edgeSet  map[[2]string]bool
}

// NewGraph constructs an empty task graph.
func NewGraph() *Graph {
	return &Graph{
		display:  make(map[string]string),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		edgeSet:  make(map[[2]string]bool),
	}
}

func canon(name string) string {
	return strings.ToLower(name)
}

// Add appends a node to the graph. It fails with ErrDuplicateNode if a
// node with the same name (case-insensitive) already exists.
func (g *Graph) Add(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(name)
}

func (g *Graph) addLocked(name string) error {
	key := canon(name)
	if _, exists := g.display[key]; exists {
		return structuralf(ErrDuplicateNode, "%s", name)
	}
	g.display[key] = name
	g.order = append(g.order, key)
	return nil
}

// Exists reports whether a node with the given name (case-insensitive)
// is present in the graph.
func (g *Graph) Exists(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.display[canon(name)]
	return ok
}

// Connect inserts an edge start->end (end depends on start), adding
// either endpoint that is not yet present. It fails with
// ErrReflexiveEdge if start and end are the same node, and with
// ErrInverseEdge if the opposite edge already exists. Connecting an
// edge that already exists is a no-op.
func (g *Graph) Connect(start, end string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	startKey, endKey := canon(start), canon(end)
	if startKey == endKey {
		return structuralf(ErrReflexiveEdge, "%s", start)
	}
	if g.edgeSet[[2]string{endKey, startKey}] {
		return structuralf(ErrInverseEdge, "%s -> %s", start, end)
	}
	if g.edgeSet[[2]string{startKey, endKey}] {
		return nil
	}

	if _, ok := g.display[startKey]; !ok {
		if err := g.addLocked(start); err != nil {
			return err
		}
	}
	if _, ok := g.display[endKey]; !ok {
		if err := g.addLocked(end); err != nil {
			return err
		}
	}

	g.edgeSet[[2]string{startKey, endKey}] = true
	g.outgoing[startKey] = append(g.outgoing[startKey], endKey)
	g.incoming[endKey] = append(g.incoming[endKey], startKey)
	return nil
}

// Traverse returns the depth-first post-order traversal rooted at
// target: each node's predecessors (the nodes it transitively depends
// on) precede it, and target is the last element. Each node appears at
// most once. It fails with ErrCyclicGraph if a back-edge is encountered.
func (g *Graph) Traverse(target string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	targetKey := canon(target)
	if _, ok := g.display[targetKey]; !ok {
		return nil, structuralf(ErrUnknownTarget, "%s", target)
	}

	visiting := make(map[string]bool)
	emitted := make(map[string]bool)
	order := make([]string, 0, len(g.order))

	var visit func(key string) error
	visit = func(key string) error {
		if emitted[key] {
			return nil
		}
		if visiting[key] {
			return structuralf(ErrCyclicGraph, "%s", g.display[key])
		}
		visiting[key] = true
		for _, pred := range g.incoming[key] {
			if err := visit(pred); err != nil {
				return err
			}
		}
		visiting[key] = false
		emitted[key] = true
		order = append(order, g.display[key])
		return nil
	}

	if err := visit(targetKey); err != nil {
		return nil, err
	}
	return order, nil
}

// TraverseAndGroup produces the same flattened order as Traverse,
// partitioned into groups of mutually independent nodes. Walking the
// linear order left to right, nodes accumulate into the current group
// until a node transitively depending on any node already in the group
// is reached; that node starts a new group. Every node in a group is
// independent of every other node in the same group and the groups must
// be executed in order. The last node always forms a final singleton
// group.
func (g *Graph) TraverseAndGroup(target string) ([][]string, error) {
	order, err := g.Traverse(target)
	if err != nil {
		return nil, err
	}

	// transDeps[key] holds the canonical names of every node key
	// transitively depends on. order is already topologically sorted, so
	// a single left-to-right pass is enough to compute it by union of
	// direct predecessors' own transitive sets.
	transDeps := make(map[string]map[string]bool, len(order))
	g.mu.Lock()
	for _, name := range order {
		key := canon(name)
		deps := make(map[string]bool)
		for _, predKey := range g.incoming[key] {
			deps[predKey] = true
			for d := range transDeps[predKey] {
				deps[d] = true
			}
		}
		transDeps[key] = deps
	}
	g.mu.Unlock()

	var groups [][]string
	var current []string
	currentSet := make(map[string]bool)

	for _, name := range order {
		key := canon(name)
		dependsOnCurrent := false
		for memberKey := range currentSet {
			if transDeps[key][memberKey] {
				dependsOnCurrent = true
				break
			}
		}
		if dependsOnCurrent && len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentSet = make(map[string]bool)
		}
		current = append(current, name)
		currentSet[key] = true
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups, nil
}

// String renders the graph's node count and edge count for diagnostics.
func (g *Graph) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	edges := 0
	for _, ends := range g.outgoing {
		edges += len(ends)
	}
	return fmt.Sprintf("Graph(nodes=%d, edges=%d)", len(g.order), edges)
}

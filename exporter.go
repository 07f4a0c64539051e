package cake

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrNilWriter indicates that a nil writer was provided to an exporter.
var ErrNilWriter = errors.New("cake: nil writer")

// DOTOption configures the behaviour of ExportDOT.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
}

func defaultDOTConfig() dotConfig {
	return dotConfig{
		graphName: "cake",
		rankDir:   "LR",
	}
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction (e.g. "LR", "TB") for the exported DOT graph.
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// ExportDOT renders the registered tasks and their prerequisite edges in
// Graphviz DOT format: an edge prerequisite -> dependent for every
// dependency declared via Connect. It does not require the graph to be
// acyclic or to have a resolved target.
func (g *Graph) ExportDOT(w io.Writer, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}

	g.mu.Lock()
	names := make([]string, 0, len(g.order))
	display := make(map[string]string, len(g.order))
	outgoing := make(map[string][]string, len(g.order))
	for _, key := range g.order {
		names = append(names, key)
		display[key] = g.display[key]
		outgoing[key] = append([]string(nil), g.outgoing[key]...)
	}
	g.mu.Unlock()

	cfg := defaultDOTConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sort.Strings(names)

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuoteIdentifier(cfg.graphName)); err != nil {
		return err
	}
	if cfg.rankDir != "" {
		if _, err := fmt.Fprintf(w, "    rankdir=%s;\n", cfg.rankDir); err != nil {
			return err
		}
	}

	for _, key := range names {
		if _, err := fmt.Fprintf(w, "    %s;\n", dotQuoteIdentifier(display[key])); err != nil {
			return err
		}
	}

	for _, key := range names {
		ends := append([]string(nil), outgoing[key]...)
		sort.Strings(ends)
		for _, endKey := range ends {
			if _, err := fmt.Fprintf(w, "    %s -> %s;\n", dotQuoteIdentifier(display[key]), dotQuoteIdentifier(display[endKey])); err != nil {
				return err
			}
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotQuoteIdentifier(name string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range name {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

package workflow

import "fmt"

// Summary is a best-effort snapshot of the parameters feeding one output
// node. Parameters that cannot be resolved stay zero-valued; only a missing
// output node is an error.
type Summary struct {
	Text         string
	NegativeText string
	Model        string
	Width        int
	Height       int
	Seed         int64
}

// Summarize collects the resolvable parameters of the subgraph above the
// given output node.
func Summarize(g *Graph, outputNode string) (*Summary, error) {
	if _, ok := g.Nodes[outputNode]; !ok {
		return nil, fmt.Errorf("output node %q: %w", outputNode, ErrNodeNotFound)
	}
	var s Summary
	if v, err := g.TextFrom(outputNode); err == nil {
		s.Text = *v
	}
	if v, err := g.NegativeTextFrom(outputNode); err == nil {
		s.NegativeText = *v
	}
	if v, err := g.ModelFrom(outputNode); err == nil {
		s.Model = *v
	}
	if v, err := g.WidthFrom(outputNode); err == nil {
		s.Width = *v
	}
	if v, err := g.HeightFrom(outputNode); err == nil {
		s.Height = *v
	}
	if v, err := g.SeedFrom(outputNode); err == nil {
		s.Seed = *v
	}
	return &s, nil
}

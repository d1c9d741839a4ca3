package workflow

import (
	"errors"
	"fmt"
)

// The accessors below expose the semantically meaningful parameters of a
// workflow without requiring the caller to know its topology. Each parameter
// has a plain form, which anchors the search at the graph's sink, and a
// ...From form taking an explicit output node id. The returned pointer
// aliases the literal inside the graph, so assigning through it mutates the
// workflow in place; callers wanting a variant clone the graph first.
//
// Parameters hosted by interchangeable node shapes (a basic sampler vs. the
// custom sampler, the checkpoint loaders) resolve through an ordered list of
// candidate strategies: the next candidate is tried only when the previous
// one failed to resolve a node at all. A resolved node whose slot holds a
// connection is a hard failure, not a reason to fall through.

// pick resolves a node of shape N near anchor and hands back a pointer to
// one of its literal slots.
func pick[N Node, T any](g *Graph, anchor string, slot func(N) *Input[T]) func() (*T, error) {
	return func() (*T, error) {
		_, n, err := Find[N](g, anchor)
		if err != nil {
			return nil, err
		}
		return slot(n).Literal()
	}
}

// firstOf tries candidate resolutions in order, falling through only on
// ErrNodeNotFound.
func firstOf[T any](candidates ...func() (*T, error)) (*T, error) {
	var err error
	for _, c := range candidates {
		var v *T
		v, err = c()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNodeNotFound) {
			return nil, err
		}
	}
	return nil, err
}

// Text returns the positive prompt text.
func (g *Graph) Text() (*string, error) { return g.TextFrom("") }

// TextFrom returns the positive prompt text for the pipeline feeding the
// given output node. The search anchors on the sampler rather than the output
// node itself: a graph may contain many text-encoder nodes, and only the one
// wired into the sampler's positive slot is "the" prompt.
func (g *Graph) TextFrom(outputNode string) (*string, error) {
	return g.conditioningText(outputNode, false)
}

// NegativeText returns the negative prompt text.
func (g *Graph) NegativeText() (*string, error) { return g.NegativeTextFrom("") }

// NegativeTextFrom returns the negative prompt text for the pipeline feeding
// the given output node, via the sampler's negative conditioning slot.
func (g *Graph) NegativeTextFrom(outputNode string) (*string, error) {
	return g.conditioningText(outputNode, true)
}

func (g *Graph) conditioningText(anchor string, negative bool) (*string, error) {
	conn, err := firstOf(
		func() (*Connection, error) {
			_, n, err := Find[*KSampler](g, anchor)
			if err != nil {
				return nil, err
			}
			if negative {
				return &n.Negative, nil
			}
			return &n.Positive, nil
		},
		func() (*Connection, error) {
			_, n, err := Find[*SamplerCustom](g, anchor)
			if err != nil {
				return nil, err
			}
			if negative {
				return &n.Negative, nil
			}
			return &n.Positive, nil
		},
	)
	if err != nil {
		return nil, err
	}
	enc, err := NodeAs[*CLIPTextEncode](g, conn.NodeID)
	if err != nil {
		return nil, fmt.Errorf("conditioning source: %w", err)
	}
	return enc.Text.Literal()
}

// Seed returns the sampling seed, hosted on either KSampler or SamplerCustom.
func (g *Graph) Seed() (*int64, error) { return g.SeedFrom("") }

// SeedFrom is Seed anchored at an explicit output node.
func (g *Graph) SeedFrom(outputNode string) (*int64, error) {
	return firstOf(
		pick(g, outputNode, func(n *KSampler) *Input[int64] { return &n.Seed }),
		pick(g, outputNode, func(n *SamplerCustom) *Input[int64] { return &n.NoiseSeed }),
	)
}

// Steps returns the step count, hosted on either KSampler or SDTurboScheduler.
func (g *Graph) Steps() (*int, error) { return g.StepsFrom("") }

// StepsFrom is Steps anchored at an explicit output node.
func (g *Graph) StepsFrom(outputNode string) (*int, error) {
	return firstOf(
		pick(g, outputNode, func(n *KSampler) *Input[int] { return &n.Steps }),
		pick(g, outputNode, func(n *SDTurboScheduler) *Input[int] { return &n.Steps }),
	)
}

// CFG returns the cfg scale, hosted on either KSampler or SamplerCustom.
func (g *Graph) CFG() (*float64, error) { return g.CFGFrom("") }

// CFGFrom is CFG anchored at an explicit output node.
func (g *Graph) CFGFrom(outputNode string) (*float64, error) {
	return firstOf(
		pick(g, outputNode, func(n *KSampler) *Input[float64] { return &n.CFG }),
		pick(g, outputNode, func(n *SamplerCustom) *Input[float64] { return &n.CFG }),
	)
}

// SamplerName returns the sampler name, hosted on either KSampler or
// KSamplerSelect.
func (g *Graph) SamplerName() (*string, error) { return g.SamplerNameFrom("") }

// SamplerNameFrom is SamplerName anchored at an explicit output node.
func (g *Graph) SamplerNameFrom(outputNode string) (*string, error) {
	return firstOf(
		pick(g, outputNode, func(n *KSampler) *Input[string] { return &n.SamplerName }),
		pick(g, outputNode, func(n *KSamplerSelect) *Input[string] { return &n.SamplerName }),
	)
}

// Model returns the checkpoint name, hosted on either CheckpointLoaderSimple
// or ImageOnlyCheckpointLoader.
func (g *Graph) Model() (*string, error) { return g.ModelFrom("") }

// ModelFrom is Model anchored at an explicit output node.
func (g *Graph) ModelFrom(outputNode string) (*string, error) {
	return firstOf(
		pick(g, outputNode, func(n *CheckpointLoaderSimple) *Input[string] { return &n.CkptName }),
		pick(g, outputNode, func(n *ImageOnlyCheckpointLoader) *Input[string] { return &n.CkptName }),
	)
}

// Denoise returns the denoise strength on the basic sampler.
func (g *Graph) Denoise() (*float64, error) { return g.DenoiseFrom("") }

// DenoiseFrom is Denoise anchored at an explicit output node.
func (g *Graph) DenoiseFrom(outputNode string) (*float64, error) {
	return pick(g, outputNode, func(n *KSampler) *Input[float64] { return &n.Denoise })()
}

// Width returns the latent width on the empty-latent node.
func (g *Graph) Width() (*int, error) { return g.WidthFrom("") }

// WidthFrom is Width anchored at an explicit output node.
func (g *Graph) WidthFrom(outputNode string) (*int, error) {
	return pick(g, outputNode, func(n *EmptyLatentImage) *Input[int] { return &n.Width })()
}

// Height returns the latent height on the empty-latent node.
func (g *Graph) Height() (*int, error) { return g.HeightFrom("") }

// HeightFrom is Height anchored at an explicit output node.
func (g *Graph) HeightFrom(outputNode string) (*int, error) {
	return pick(g, outputNode, func(n *EmptyLatentImage) *Input[int] { return &n.Height })()
}

// BatchSize returns the latent batch size on the empty-latent node.
func (g *Graph) BatchSize() (*int, error) { return g.BatchSizeFrom("") }

// BatchSizeFrom is BatchSize anchored at an explicit output node.
func (g *Graph) BatchSizeFrom(outputNode string) (*int, error) {
	return pick(g, outputNode, func(n *EmptyLatentImage) *Input[int] { return &n.BatchSize })()
}

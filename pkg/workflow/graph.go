package workflow

import (
	"encoding/json"
	"fmt"
)

// Graph is a workflow: an unordered mapping from node id to node. Node ids
// are opaque strings chosen by the graph producer. The zero value is usable.
type Graph struct {
	Nodes map[string]Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]Node)}
}

// Parse decodes a graph from the server's native JSON format.
func Parse(data []byte) (*Graph, error) {
	g := New()
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Add inserts or replaces a node.
func (g *Graph) Add(id string, n Node) {
	if g.Nodes == nil {
		g.Nodes = make(map[string]Node)
	}
	g.Nodes[id] = n
}

// NodeAs returns the node with the given id asserted to the concrete shape N.
// It fails with ErrNodeNotFound when the id is absent and ErrNodeType when
// the node has a different shape.
func NodeAs[N Node](g *Graph, id string) (N, error) {
	var zero N
	n, ok := g.Nodes[id]
	if !ok {
		return zero, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	typed, ok := n.(N)
	if !ok {
		return zero, fmt.Errorf("node %q is %s: %w", id, n.ClassType(), ErrNodeType)
	}
	return typed, nil
}

// Clone deep-copies the graph through its wire encoding, so callers can
// derive request variants without mutating a shared template.
func (g *Graph) Clone() (*Graph, error) {
	data, err := g.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	return Parse(data)
}

// envelope is the wire form of a single node.
type envelope struct {
	ClassType string          `json:"class_type"`
	Inputs    json.RawMessage `json:"inputs"`
}

// MarshalJSON encodes the graph in the server's native format.
func (g Graph) MarshalJSON() ([]byte, error) {
	raw := make(map[string]envelope, len(g.Nodes))
	for id, n := range g.Nodes {
		var inputs []byte
		var err error
		if gen, ok := n.(*GenericNode); ok {
			inputs, err = json.Marshal(gen.Inputs)
		} else {
			inputs, err = json.Marshal(n)
		}
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		raw[id] = envelope{ClassType: n.ClassType(), Inputs: inputs}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the server's native format, dispatching each node
// through the shape registry. Unrecognized class types, and known class types
// whose inputs do not fit the registered shape, decode as GenericNode.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw map[string]envelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("workflow graph: %w", err)
	}
	g.Nodes = make(map[string]Node, len(raw))
	for id, env := range raw {
		n, err := decodeNode(env)
		if err != nil {
			return fmt.Errorf("node %q: %w", id, err)
		}
		g.Nodes[id] = n
	}
	return nil
}

func decodeNode(env envelope) (Node, error) {
	if ctor, ok := shapes[env.ClassType]; ok {
		n := ctor()
		if err := json.Unmarshal(env.Inputs, n); err == nil {
			return n, nil
		}
		// Inputs did not fit the known shape; keep the node generically so
		// the graph still round-trips and traversal still works.
	}
	gen := &GenericNode{Class: env.ClassType}
	if err := json.Unmarshal(env.Inputs, &gen.Inputs); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	return gen, nil
}

// shapes is the registry of known node shapes, keyed by class type.
var shapes = map[string]func() Node{}

// Register adds a node shape to the decode registry. The standard shapes are
// registered at init; callers may register additional custom-node shapes.
func Register(classType string, ctor func() Node) {
	shapes[classType] = ctor
}

func init() {
	for _, ctor := range []func() Node{
		func() Node { return new(KSampler) },
		func() Node { return new(CLIPTextEncode) },
		func() Node { return new(EmptyLatentImage) },
		func() Node { return new(CheckpointLoaderSimple) },
		func() Node { return new(VAELoader) },
		func() Node { return new(VAEDecode) },
		func() Node { return new(PreviewImage) },
		func() Node { return new(KSamplerSelect) },
		func() Node { return new(SamplerCustom) },
		func() Node { return new(SDTurboScheduler) },
		func() Node { return new(ImageOnlyCheckpointLoader) },
		func() Node { return new(LoadImage) },
		func() Node { return new(SVDImg2VidConditioning) },
		func() Node { return new(VideoLinearCFGGuidance) },
		func() Node { return new(SaveAnimatedWEBP) },
		func() Node { return new(LoraLoader) },
		func() Node { return new(ModelSamplingDiscrete) },
		func() Node { return new(SaveImage) },
	} {
		Register(ctor().ClassType(), ctor)
	}
}

/*
Package workflow models a ComfyUI prompt workflow: a graph of nodes indexed by
opaque string ids, where each node input either carries a literal value or a
connection to another node's output.

The package has three layers:

  - The graph model: Graph, the Node interface, the known node shapes
    (KSampler, CLIPTextEncode, ...) and GenericNode for shapes this package
    does not recognize. JSON encoding matches the server's native format, so a
    workflow exported from the ComfyUI editor ("API format") loads directly.
  - The resolver: SinkID, FindFrom, Scan and Find locate nodes by shape,
    walking the dependency graph upstream from an anchor node with a global
    scan as fallback.
  - The accessors: typed get/set entry points for the handful of semantically
    meaningful parameters (prompt text, seed, model, size, ...) buried inside
    an arbitrary graph topology. Callers mutate through the returned pointer.

Accessors never invent values: a slot that currently holds a connection is
opaque (its value is computed server-side) and reading or writing it fails
with ErrInputIsConnection.
*/
package workflow

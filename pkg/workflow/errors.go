package workflow

import "errors"

// ErrNodeNotFound is returned when no node matches a lookup, either by id or
// by shape. It is always recoverable: callers may try another anchor or accept
// the parameter's absence.
var ErrNodeNotFound = errors.New("node not found")

// ErrNoSink is returned when sink resolution finds no node that is free of
// dependents (e.g. a cyclic or fully-referenced graph).
var ErrNoSink = errors.New("graph has no sink node")

// ErrInputIsConnection is returned when reading or writing an input slot that
// holds a connection to another node's output. Connected slots are computed
// server-side and cannot be accessed locally.
var ErrInputIsConnection = errors.New("input is a node connection")

// ErrNodeType is returned when a node resolved by id does not have the shape
// the caller requires.
var ErrNodeType = errors.New("unexpected node class")

package workflow

import (
	"encoding/json"
	"fmt"
)

// Connection references another node's output: the producing node's id and
// the index of the output to use. On the wire it is the two-element array
// ["<node id>", <output index>].
type Connection struct {
	NodeID      string
	OutputIndex int
}

// MarshalJSON encodes the connection in its wire form.
func (c Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.NodeID, c.OutputIndex})
}

// UnmarshalJSON decodes the ["<node id>", <output index>] wire form. Anything
// else is rejected so that literal values are never mistaken for connections.
func (c *Connection) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("connection must be a two-element array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("connection must be a two-element array, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.NodeID); err != nil {
		return fmt.Errorf("connection node id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.OutputIndex); err != nil {
		return fmt.Errorf("connection output index: %w", err)
	}
	return nil
}

// Input is a single node input slot holding either a literal value of type T
// or a Connection to another node's output. The zero value is the literal
// zero value of T.
type Input[T any] struct {
	conn *Connection
	val  T
}

// Value returns an Input holding a literal.
func Value[T any](v T) Input[T] {
	return Input[T]{val: v}
}

// Linked returns an Input holding a connection.
func Linked[T any](c Connection) Input[T] {
	return Input[T]{conn: &c}
}

// Literal returns a pointer to the literal value, usable for both reads and
// in-place writes. It fails with ErrInputIsConnection when the slot holds a
// connection.
func (in *Input[T]) Literal() (*T, error) {
	if in.conn != nil {
		return nil, ErrInputIsConnection
	}
	return &in.val, nil
}

// Connection returns the connection held by the slot, if any.
func (in Input[T]) Connection() (Connection, bool) {
	if in.conn == nil {
		return Connection{}, false
	}
	return *in.conn, true
}

// MarshalJSON encodes either the connection pair or the literal.
func (in Input[T]) MarshalJSON() ([]byte, error) {
	if in.conn != nil {
		return json.Marshal(in.conn)
	}
	return json.Marshal(in.val)
}

// UnmarshalJSON prefers the connection wire form and falls back to a literal.
func (in *Input[T]) UnmarshalJSON(data []byte) error {
	var c Connection
	if err := c.UnmarshalJSON(data); err == nil {
		in.conn = &c
		var zero T
		in.val = zero
		return nil
	}
	in.conn = nil
	return json.Unmarshal(data, &in.val)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Update is one push notification read off the websocket. The concrete types
// are Status, Progress, ExecutionStart, Executing, Executed, ExecutionCached,
// ExecutionInterrupted and ExecutionError.
//
// Updates arrive only while a connection is open; the server neither buffers
// nor replays them, which is why completed work must be reconciled against
// the history record.
type Update interface {
	update()
}

// ErrUnknownUpdate reports a websocket text frame whose event type this
// package does not recognize. Such frames are harmless and should be skipped.
var ErrUnknownUpdate = errors.New("unknown update type")

// Status reports queue depth.
type Status struct {
	QueueRemaining uint64
}

// Progress reports the step counter of the currently executing node.
type Progress struct {
	Value uint64 `json:"value"`
	Max   uint64 `json:"max"`
}

// ExecutionStart marks the start of a run.
type ExecutionStart struct {
	PromptID uuid.UUID `json:"prompt_id"`
}

// Executing reports the node about to run. A nil Node means the run for this
// prompt id is complete.
type Executing struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Node     *string   `json:"node"`
}

// Executed reports a node that finished and the images it produced.
type Executed struct {
	PromptID uuid.UUID
	Node     string
	Images   []ImageRef
}

// ExecutionCached enumerates nodes skipped because their outputs were already
// computed. These nodes will not receive an Executed notification even though
// their outputs appear in history.
type ExecutionCached struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Nodes    []string  `json:"nodes"`
}

// ExecutionInterrupted reports a run cancelled server-side. It doubles as the
// terminal error for the affected submission.
type ExecutionInterrupted struct {
	PromptID uuid.UUID         `json:"prompt_id"`
	NodeID   string            `json:"node_id"`
	NodeType string            `json:"node_type"`
	Executed []json.RawMessage `json:"executed"`
}

func (e *ExecutionInterrupted) Error() string {
	return fmt.Sprintf("execution interrupted at node %s (%s)", e.NodeID, e.NodeType)
}

// ExecutionError reports a run aborted by a node failure, with the server's
// diagnostics intact. It doubles as the terminal error for the affected
// submission.
type ExecutionError struct {
	ExecutionInterrupted
	ExceptionMessage string          `json:"exception_message"`
	ExceptionType    string          `json:"exception_type"`
	Traceback        []string        `json:"traceback"`
	CurrentInputs    json.RawMessage `json:"current_inputs"`
	CurrentOutputs   json.RawMessage `json:"current_outputs"`
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("execution error at node %s (%s): %s: %s",
		e.NodeID, e.NodeType, e.ExceptionType, e.ExceptionMessage)
	if len(e.Traceback) > 0 {
		msg += "\n" + strings.Join(e.Traceback, "")
	}
	return msg
}

func (Status) update()                {}
func (Progress) update()              {}
func (ExecutionStart) update()        {}
func (Executing) update()             {}
func (Executed) update()              {}
func (ExecutionCached) update()       {}
func (*ExecutionInterrupted) update() {}
func (*ExecutionError) update()       {}

// ParseUpdate decodes one websocket text frame. Recognized event types with
// malformed payloads are an error; unrecognized types return ErrUnknownUpdate
// so callers can skip them.
func ParseUpdate(data []byte) (Update, error) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("update envelope: %w", err)
	}
	decode := func(v any) error {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("%s payload: %w", env.Type, err)
		}
		return nil
	}
	switch env.Type {
	case "status":
		var payload struct {
			Status struct {
				ExecInfo struct {
					QueueRemaining uint64 `json:"queue_remaining"`
				} `json:"exec_info"`
			} `json:"status"`
		}
		if err := decode(&payload); err != nil {
			return nil, err
		}
		return Status{QueueRemaining: payload.Status.ExecInfo.QueueRemaining}, nil
	case "progress":
		var u Progress
		if err := decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case "execution_start":
		var u ExecutionStart
		if err := decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case "executing":
		var u Executing
		if err := decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case "executed":
		var payload struct {
			PromptID uuid.UUID `json:"prompt_id"`
			Node     string    `json:"node"`
			Output   struct {
				Images []ImageRef `json:"images"`
			} `json:"output"`
		}
		if err := decode(&payload); err != nil {
			return nil, err
		}
		return Executed{PromptID: payload.PromptID, Node: payload.Node, Images: payload.Output.Images}, nil
	case "execution_cached":
		var u ExecutionCached
		if err := decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case "execution_interrupted":
		var u ExecutionInterrupted
		if err := decode(&u); err != nil {
			return nil, err
		}
		return &u, nil
	case "execution_error":
		var u ExecutionError
		if err := decode(&u); err != nil {
			return nil, err
		}
		return &u, nil
	default:
		return nil, fmt.Errorf("%q: %w", env.Type, ErrUnknownUpdate)
	}
}

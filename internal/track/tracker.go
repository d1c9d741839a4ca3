// Package track turns the stream of push notifications for one submission,
// plus the authoritative history record, into an ordered sequence of output
// images.
//
// The two sources can both describe the same completed work (an executed
// notification and a history entry), or disagree: nodes satisfied from cache
// are announced by id only and never receive an executed notification, yet
// their outputs appear in history. The tracker reconciles the two by
// remembering which nodes it has already yielded and backfilling the rest
// from history when the run completes.
package track

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arliden/comfygraph/pkg/api"
)

// UpdateSource is the live push-notification stream for a client id.
type UpdateSource interface {
	Next(ctx context.Context) (api.Update, error)
	Close() error
}

// ImageFetcher retrieves whole image bytes by reference.
type ImageFetcher interface {
	View(ctx context.Context, ref api.ImageRef) ([]byte, error)
}

// HistorySource retrieves the authoritative record of a completed submission.
type HistorySource interface {
	History(ctx context.Context, promptID uuid.UUID) (*api.Task, error)
}

// Result is one item of the tracker's output sequence: an image tagged with
// the node that produced it, or the failure that ended the run. At most one
// Result carries a non-nil Err and it is always the final one.
type Result struct {
	Node  string
	Image []byte
	Err   error
}

// Tracker follows one submission, identified by its prompt id, across a
// shared or dedicated update stream. It owns only transient state (the set
// of node ids already yielded) and is not restartable.
type Tracker struct {
	promptID uuid.UUID
	updates  UpdateSource
	images   ImageFetcher
	history  HistorySource
	log      *slog.Logger
}

// New returns a Tracker for one submission. The logger may be nil.
func New(promptID uuid.UUID, updates UpdateSource, images ImageFetcher, history HistorySource, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		promptID: promptID,
		updates:  updates,
		images:   images,
		history:  history,
		log:      log.With("prompt_id", promptID),
	}
}

// Run consumes the update stream and returns the lazy, single-pass sequence
// of output images. The channel closes when the run finishes, fails, or ctx
// is cancelled; the update stream is closed on the way out. Abandoning the
// channel without draining it requires cancelling ctx.
func (t *Tracker) Run(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		defer t.updates.Close()
		t.run(ctx, out)
	}()
	return out
}

func (t *Tracker) run(ctx context.Context, out chan<- Result) {
	yielded := make(map[string]struct{})
	for {
		update, err := t.updates.Next(ctx)
		if err != nil {
			t.emit(ctx, out, Result{Err: fmt.Errorf("update stream: %w", err)})
			return
		}
		switch u := update.(type) {
		case api.Executed:
			if u.PromptID != t.promptID {
				continue
			}
			yielded[u.Node] = struct{}{}
			if !t.emitImages(ctx, out, u.Node, u.Images) {
				return
			}
		case api.Executing:
			if u.PromptID != t.promptID {
				continue
			}
			if u.Node != nil {
				t.log.Debug("node executing", "node", *u.Node)
				continue
			}
			// End of the run: reconcile against history so cache-hit nodes,
			// which never produced an executed notification, still yield.
			t.backfill(ctx, out, yielded)
			return
		case *api.ExecutionInterrupted:
			if u.PromptID != t.promptID {
				continue
			}
			t.emit(ctx, out, Result{Err: u})
			return
		case *api.ExecutionError:
			if u.PromptID != t.promptID {
				continue
			}
			t.emit(ctx, out, Result{Err: u})
			return
		case api.ExecutionCached:
			if u.PromptID == t.promptID {
				t.log.Debug("nodes satisfied from cache", "nodes", u.Nodes)
			}
		case api.Status:
			t.log.Debug("queue status", "remaining", u.QueueRemaining)
		case api.Progress:
			t.log.Debug("progress", "value", u.Value, "max", u.Max)
		case api.ExecutionStart:
			if u.PromptID == t.promptID {
				t.log.Debug("execution started")
			}
		}
	}
}

func (t *Tracker) backfill(ctx context.Context, out chan<- Result, yielded map[string]struct{}) {
	task, err := t.history.History(ctx, t.promptID)
	if err != nil {
		t.emit(ctx, out, Result{Err: fmt.Errorf("backfill history: %w", err)})
		return
	}
	nodes := make([]string, 0, len(task.Outputs))
	for node := range task.Outputs {
		if _, done := yielded[node]; !done {
			nodes = append(nodes, node)
		}
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if !t.emitImages(ctx, out, node, task.Outputs[node].Images) {
			return
		}
	}
}

// emitImages fetches one node's images concurrently and emits them in their
// original order. It reports false when the sequence must stop.
func (t *Tracker) emitImages(ctx context.Context, out chan<- Result, node string, refs []api.ImageRef) bool {
	if len(refs) == 0 {
		return true
	}
	data := make([][]byte, len(refs))
	eg, fetchCtx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		eg.Go(func() error {
			b, err := t.images.View(fetchCtx, ref)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", ref.Filename, err)
			}
			data[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.emit(ctx, out, Result{Err: err})
		return false
	}
	for _, b := range data {
		if !t.emit(ctx, out, Result{Node: node, Image: b}) {
			return false
		}
	}
	return true
}

func (t *Tracker) emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

package comfygraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arliden/comfygraph/pkg/api"
	"github.com/arliden/comfygraph/pkg/workflow"
)

// fakeServer emulates the four server endpoints a generation touches: queue,
// websocket updates, history, and image download.
type fakeServer struct {
	t        *testing.T
	promptID uuid.UUID
	// frames returns the websocket script for a queued prompt. It runs once
	// the prompt has been accepted.
	frames func(id uuid.UUID) []string
	// history is keyed by node id; images are served as "data:"+filename.
	history map[string][]string

	mu     sync.Mutex
	queued chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{
		t:        t,
		promptID: uuid.New(),
		queued:   make(chan struct{}),
	}
}

func (f *fakeServer) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", f.handleQueue)
	mux.HandleFunc("/ws", f.handleWS)
	mux.HandleFunc("/history/", f.handleHistory)
	mux.HandleFunc("/view", f.handleView)
	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakeServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt   map[string]json.RawMessage `json:"prompt"`
		ClientID uuid.UUID                  `json:"client_id"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	require.NotEmpty(f.t, req.Prompt)
	require.NotEqual(f.t, uuid.Nil, req.ClientID)

	json.NewEncoder(w).Encode(map[string]any{
		"prompt_id":   f.promptID,
		"number":      1,
		"node_errors": map[string]any{},
	})
	f.mu.Lock()
	select {
	case <-f.queued:
	default:
		close(f.queued)
	}
	f.mu.Unlock()
}

func (f *fakeServer) handleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	require.NoError(f.t, err)
	defer conn.Close()

	select {
	case <-f.queued:
	case <-time.After(5 * time.Second):
		f.t.Error("no prompt was queued")
		return
	}
	for _, frame := range f.frames(f.promptID) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}
	// Keep the connection open until the client hangs up.
	conn.ReadMessage()
}

func (f *fakeServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	outputs := make(map[string]any, len(f.history))
	for node, files := range f.history {
		images := make([]map[string]string, len(files))
		for i, file := range files {
			images[i] = map[string]string{"filename": file, "subfolder": "", "type": "output"}
		}
		outputs[node] = map[string]any{"images": images}
	}
	json.NewEncoder(w).Encode(map[string]any{
		f.promptID.String(): map[string]any{"outputs": outputs},
	})
}

func (f *fakeServer) handleView(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "data:%s", r.URL.Query().Get("filename"))
}

func testWorkflow() *workflow.Graph {
	g := workflow.New()
	g.Add("1", &workflow.CheckpointLoaderSimple{CkptName: workflow.Value("sd.ckpt")})
	g.Add("2", &workflow.CLIPTextEncode{Text: workflow.Value("a cat"), CLIP: workflow.Connection{NodeID: "1", OutputIndex: 1}})
	g.Add("3", &workflow.CLIPTextEncode{Text: workflow.Value(""), CLIP: workflow.Connection{NodeID: "1", OutputIndex: 1}})
	g.Add("4", &workflow.EmptyLatentImage{BatchSize: workflow.Value(1), Width: workflow.Value(512), Height: workflow.Value(512)})
	g.Add("5", &workflow.KSampler{
		Seed: workflow.Value(int64(1)), Steps: workflow.Value(20),
		CFG: workflow.Value(8.0), Denoise: workflow.Value(1.0),
		SamplerName: workflow.Value("euler"), Scheduler: workflow.Value("normal"),
		Positive:    workflow.Connection{NodeID: "2", OutputIndex: 0},
		Negative:    workflow.Connection{NodeID: "3", OutputIndex: 0},
		Model:       workflow.Connection{NodeID: "1", OutputIndex: 0},
		LatentImage: workflow.Connection{NodeID: "4", OutputIndex: 0},
	})
	g.Add("6", &workflow.VAEDecode{Samples: workflow.Connection{NodeID: "5", OutputIndex: 0}, VAE: workflow.Connection{NodeID: "1", OutputIndex: 2}})
	g.Add("7", &workflow.SaveImage{FilenamePrefix: workflow.Value("test"), Images: workflow.Connection{NodeID: "6", OutputIndex: 0}})
	return g
}

func TestGenerate(t *testing.T) {
	fake := newFakeServer(t)
	fake.frames = func(id uuid.UUID) []string {
		return []string{
			`{"type": "execution_start", "data": {"prompt_id": "` + id.String() + `"}}`,
			`{"type": "executing", "data": {"prompt_id": "` + id.String() + `", "node": "7"}}`,
			`{"type": "executed", "data": {"prompt_id": "` + id.String() + `", "node": "7",
				"output": {"images": [{"filename": "test_00001_.png", "subfolder": "", "type": "output"}]}}}`,
			`{"type": "executing", "data": {"prompt_id": "` + id.String() + `", "node": null}}`,
		}
	}
	fake.history = map[string][]string{"7": {"test_00001_.png"}}
	srv := fake.start()

	client, err := New(srv.URL)
	require.NoError(t, err)

	outputs, err := client.Generate(context.Background(), testWorkflow())
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "7", outputs[0].Node)
	assert.Equal(t, []byte("data:test_00001_.png"), outputs[0].Image)
}

func TestGenerateBackfillsCachedRun(t *testing.T) {
	// The whole graph is a cache hit: the server announces completion
	// without a single executed notification, and the images come from
	// history alone.
	fake := newFakeServer(t)
	fake.frames = func(id uuid.UUID) []string {
		return []string{
			`{"type": "execution_start", "data": {"prompt_id": "` + id.String() + `"}}`,
			`{"type": "execution_cached", "data": {"prompt_id": "` + id.String() + `", "nodes": ["1", "5", "7"]}}`,
			`{"type": "executing", "data": {"prompt_id": "` + id.String() + `", "node": null}}`,
		}
	}
	fake.history = map[string][]string{"7": {"cached_00001_.png"}}
	srv := fake.start()

	client, err := New(srv.URL)
	require.NoError(t, err)

	outputs, err := client.Generate(context.Background(), testWorkflow())
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []byte("data:cached_00001_.png"), outputs[0].Image)
}

func TestGenerateExecutionError(t *testing.T) {
	fake := newFakeServer(t)
	fake.frames = func(id uuid.UUID) []string {
		return []string{
			`{"type": "execution_start", "data": {"prompt_id": "` + id.String() + `"}}`,
			`{"type": "execution_error", "data": {
				"prompt_id": "` + id.String() + `",
				"node_id": "5", "node_type": "KSampler",
				"exception_message": "CUDA out of memory",
				"exception_type": "torch.OutOfMemoryError",
				"traceback": ["..."]}}`,
		}
	}
	srv := fake.start()

	client, err := New(srv.URL)
	require.NoError(t, err)

	outputs, err := client.Generate(context.Background(), testWorkflow())
	assert.Empty(t, outputs)

	var execErr *api.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "5", execErr.NodeID)
	assert.Equal(t, "torch.OutOfMemoryError", execErr.ExceptionType)
}

func TestGenerateQueueRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err == nil {
			defer conn.Close()
			conn.ReadMessage()
		}
	})
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid prompt"}`, http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), workflow.New())
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestStreamCancellation(t *testing.T) {
	// The server accepts the prompt and then goes silent; cancelling the
	// context must terminate the sequence.
	fake := newFakeServer(t)
	fake.frames = func(uuid.UUID) []string { return nil }
	srv := fake.start()

	client, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Stream(ctx, testWorkflow())
	require.NoError(t, err)

	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case out, ok := <-stream:
			if !ok {
				return
			}
			if out.Err != nil {
				assert.ErrorIs(t, out.Err, context.Canceled)
			}
		case <-deadline:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}

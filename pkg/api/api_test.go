package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arliden/comfygraph/pkg/workflow"
)

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8188")
	assert.Error(t, err)

	_, err = New("http://localhost:8188")
	assert.NoError(t, err)
}

func TestClientIDPinned(t *testing.T) {
	id := uuid.New()
	c, err := New("http://localhost:8188", WithClientID(id))
	require.NoError(t, err)
	assert.Equal(t, id, c.ClientID())
}

func TestQueue(t *testing.T) {
	promptID := uuid.New()
	clientID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/prompt", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Prompt   map[string]json.RawMessage `json:"prompt"`
			ClientID uuid.UUID                  `json:"client_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, clientID, req.ClientID)
		assert.Contains(t, req.Prompt, "1")

		json.NewEncoder(w).Encode(map[string]any{
			"prompt_id":   promptID,
			"number":      3,
			"node_errors": map[string]any{},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithClientID(clientID))
	require.NoError(t, err)

	g := workflow.New()
	g.Add("1", &workflow.CheckpointLoaderSimple{CkptName: workflow.Value("sd.ckpt")})

	resp, err := c.Queue(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, promptID, resp.PromptID)
	assert.Equal(t, uint64(3), resp.Number)
	assert.Empty(t, resp.NodeErrors)
}

func TestQueueValidationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid prompt"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Queue(context.Background(), workflow.New())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "invalid prompt")
}

func TestHistory(t *testing.T) {
	promptID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/history/"+promptID.String(), r.URL.Path)
		fmt.Fprintf(w, `{%q: {"outputs": {"9": {"images": [
			{"filename": "x_00001_.png", "subfolder": "", "type": "output"}
		]}}}}`, promptID)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	task, err := c.History(context.Background(), promptID)
	require.NoError(t, err)
	require.Contains(t, task.Outputs, "9")
	require.Len(t, task.Outputs["9"].Images, 1)
	assert.Equal(t, ImageRef{Filename: "x_00001_.png", FolderType: "output"}, task.Outputs["9"].Images[0])
}

func TestHistoryUnknownPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server answers an unknown id with an empty object, not a 404.
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.History(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/view", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "x_00001_.png", q.Get("filename"))
		require.Equal(t, "batch", q.Get("subfolder"))
		require.Equal(t, "output", q.Get("type"))
		w.Write([]byte("png bytes"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	data, err := c.View(context.Background(), ImageRef{
		Filename:   "x_00001_.png",
		Subfolder:  "batch",
		FolderType: "output",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), data)
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload/image", r.URL.Path)

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "init.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("image data"), data)

		json.NewEncoder(w).Encode(map[string]string{
			"name":      "init.png",
			"subfolder": "",
			"type":      "input",
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	up, err := c.UploadImage(context.Background(), "init.png", []byte("image data"))
	require.NoError(t, err)
	assert.Equal(t, &UploadedImage{Name: "init.png", FolderType: "input"}, up)
}

func TestEndpointWithBasePath(t *testing.T) {
	c, err := New("http://host:8188/comfy/")
	require.NoError(t, err)
	assert.Equal(t, "http://host:8188/comfy/upload/image", c.endpoint("upload", "image").String())
}

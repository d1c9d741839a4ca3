package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawConn(id string, idx int) json.RawMessage {
	data, _ := json.Marshal([]any{id, idx})
	return data
}

func TestSinkID(t *testing.T) {
	g := parseDefault(t)
	sink, err := g.SinkID()
	require.NoError(t, err)
	assert.Equal(t, "9", sink)
}

func TestSinkIDCycle(t *testing.T) {
	g := New()
	g.Add("1", &GenericNode{Class: "A", Inputs: map[string]json.RawMessage{"in": rawConn("2", 0)}})
	g.Add("2", &GenericNode{Class: "B", Inputs: map[string]json.RawMessage{"in": rawConn("1", 0)}})

	_, err := g.SinkID()
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestSinkIDMultipleCandidates(t *testing.T) {
	// Two disconnected pipelines; the smaller id wins so repeated resolution
	// is stable.
	g := New()
	g.Add("20", &SaveImage{Images: Connection{NodeID: "4", OutputIndex: 0}})
	g.Add("4", &VAEDecode{})
	g.Add("10", &PreviewImage{Images: Connection{NodeID: "5", OutputIndex: 0}})
	g.Add("5", &VAEDecode{})

	sink, err := g.SinkID()
	require.NoError(t, err)
	assert.Equal(t, "10", sink)
}

func TestFindFromPrefersUpstreamPath(t *testing.T) {
	g := parseDefault(t)

	// From the save node, the checkpoint loader is reachable only through
	// the decode/sampler chain.
	id, loader, err := FindFrom[*CheckpointLoaderSimple](g, "9")
	require.NoError(t, err)
	assert.Equal(t, "4", id)
	name, err := loader.CkptName.Literal()
	require.NoError(t, err)
	assert.Equal(t, "v1-5-pruned-emaonly.ckpt", *name)
}

func TestFindFromAnchorMatches(t *testing.T) {
	g := parseDefault(t)
	id, _, err := FindFrom[*KSampler](g, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", id)
}

func TestFindFromMiss(t *testing.T) {
	g := parseDefault(t)

	// "5" has no upstream nodes, so nothing but itself is reachable.
	_, _, err := FindFrom[*KSampler](g, "5")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, _, err = FindFrom[*KSampler](g, "nope")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestFindFromSkipsDanglingReference(t *testing.T) {
	g := New()
	g.Add("1", &VAEDecode{
		Samples: Connection{NodeID: "gone", OutputIndex: 0},
		VAE:     Connection{NodeID: "2", OutputIndex: 0},
	})
	g.Add("2", &VAELoader{VAEName: Value("sd_vae.safetensors")})

	id, _, err := FindFrom[*VAELoader](g, "1")
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestFindFromSurvivesCycle(t *testing.T) {
	g := New()
	g.Add("1", &GenericNode{Class: "A", Inputs: map[string]json.RawMessage{"in": rawConn("2", 0)}})
	g.Add("2", &GenericNode{Class: "B", Inputs: map[string]json.RawMessage{"in": rawConn("1", 0)}})

	_, _, err := FindFrom[*KSampler](g, "1")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestScanOrder(t *testing.T) {
	g := New()
	g.Add("7", &CLIPTextEncode{Text: Value("second")})
	g.Add("6", &CLIPTextEncode{Text: Value("first")})

	id, enc, err := Scan[*CLIPTextEncode](g)
	require.NoError(t, err)
	assert.Equal(t, "6", id)
	text, err := enc.Text.Literal()
	require.NoError(t, err)
	assert.Equal(t, "first", *text)
}

func TestFindDefaultsToSink(t *testing.T) {
	g := parseDefault(t)
	id, _, err := Find[*KSampler](g, "")
	require.NoError(t, err)
	assert.Equal(t, "3", id)
}

func TestFindFallsBackToScan(t *testing.T) {
	// The loader is not reachable from the sink's upstream walk, but a
	// global scan still finds it.
	g := New()
	g.Add("9", &SaveImage{Images: Connection{NodeID: "8", OutputIndex: 0}})
	g.Add("8", &VAEDecode{})
	g.Add("1", &CheckpointLoaderSimple{CkptName: Value("orphan.ckpt")})

	// "1" is also a sink candidate, but "1" < "8" < "9" means the walk
	// anchors there and succeeds immediately; pin the anchor to exercise
	// the fallback.
	id, _, err := Find[*CheckpointLoaderSimple](g, "9")
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

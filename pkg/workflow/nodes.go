package workflow

import (
	"encoding/json"
	"sort"
)

// Node is the single capability the resolver requires of every node in a
// graph: its class type and the ordered set of upstream node references
// currently held by its input slots. Shape-specific fields are reached by
// asserting to the concrete type.
type Node interface {
	// ClassType reports the server-side class name of the node.
	ClassType() string
	// Dependencies lists the connections held by the node's input slots, in
	// declaration order. Literal-valued slots contribute nothing.
	Dependencies() []Connection
}

// connsOf collects the connections out of a mix of optional and required
// slots. Optional slots are passed as *Connection (nil when literal).
func connsOf(refs ...*Connection) []Connection {
	out := make([]Connection, 0, len(refs))
	for _, r := range refs {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func slot[T any](in *Input[T]) *Connection {
	if c, ok := in.Connection(); ok {
		return &c
	}
	return nil
}

// KSampler is the basic sampler node.
type KSampler struct {
	CFG         Input[float64] `json:"cfg"`
	Denoise     Input[float64] `json:"denoise"`
	SamplerName Input[string]  `json:"sampler_name"`
	Scheduler   Input[string]  `json:"scheduler"`
	Seed        Input[int64]   `json:"seed"`
	Steps       Input[int]     `json:"steps"`
	Positive    Connection     `json:"positive"`
	Negative    Connection     `json:"negative"`
	Model       Connection     `json:"model"`
	LatentImage Connection     `json:"latent_image"`
}

func (n *KSampler) ClassType() string { return "KSampler" }

func (n *KSampler) Dependencies() []Connection {
	return connsOf(
		slot(&n.CFG), slot(&n.Denoise), slot(&n.SamplerName), slot(&n.Scheduler),
		slot(&n.Seed), slot(&n.Steps),
		&n.Positive, &n.Negative, &n.Model, &n.LatentImage,
	)
}

// CLIPTextEncode encodes prompt text into conditioning.
type CLIPTextEncode struct {
	Text Input[string] `json:"text"`
	CLIP Connection    `json:"clip"`
}

func (n *CLIPTextEncode) ClassType() string { return "CLIPTextEncode" }

func (n *CLIPTextEncode) Dependencies() []Connection {
	return connsOf(slot(&n.Text), &n.CLIP)
}

// EmptyLatentImage produces a blank latent of the requested size.
type EmptyLatentImage struct {
	BatchSize Input[int] `json:"batch_size"`
	Width     Input[int] `json:"width"`
	Height    Input[int] `json:"height"`
}

func (n *EmptyLatentImage) ClassType() string { return "EmptyLatentImage" }

func (n *EmptyLatentImage) Dependencies() []Connection {
	return connsOf(slot(&n.BatchSize), slot(&n.Width), slot(&n.Height))
}

// CheckpointLoaderSimple loads a checkpoint by name.
type CheckpointLoaderSimple struct {
	CkptName Input[string] `json:"ckpt_name"`
}

func (n *CheckpointLoaderSimple) ClassType() string { return "CheckpointLoaderSimple" }

func (n *CheckpointLoaderSimple) Dependencies() []Connection {
	return connsOf(slot(&n.CkptName))
}

// VAELoader loads a standalone VAE by name.
type VAELoader struct {
	VAEName Input[string] `json:"vae_name"`
}

func (n *VAELoader) ClassType() string { return "VAELoader" }

func (n *VAELoader) Dependencies() []Connection {
	return connsOf(slot(&n.VAEName))
}

// VAEDecode decodes latent samples into pixels.
type VAEDecode struct {
	Samples Connection `json:"samples"`
	VAE     Connection `json:"vae"`
}

func (n *VAEDecode) ClassType() string { return "VAEDecode" }

func (n *VAEDecode) Dependencies() []Connection {
	return connsOf(&n.VAE, &n.Samples)
}

// PreviewImage shows images in the UI without persisting them.
type PreviewImage struct {
	Images Connection `json:"images"`
}

func (n *PreviewImage) ClassType() string { return "PreviewImage" }

func (n *PreviewImage) Dependencies() []Connection {
	return connsOf(&n.Images)
}

// KSamplerSelect selects a sampler implementation by name for SamplerCustom.
type KSamplerSelect struct {
	SamplerName Input[string] `json:"sampler_name"`
}

func (n *KSamplerSelect) ClassType() string { return "KSamplerSelect" }

func (n *KSamplerSelect) Dependencies() []Connection {
	return connsOf(slot(&n.SamplerName))
}

// SamplerCustom is the advanced sampler node; it carries its own seed and cfg
// and takes the sampler and sigmas as connections.
type SamplerCustom struct {
	AddNoise    Input[bool]    `json:"add_noise"`
	CFG         Input[float64] `json:"cfg"`
	NoiseSeed   Input[int64]   `json:"noise_seed"`
	LatentImage Connection     `json:"latent_image"`
	Model       Connection     `json:"model"`
	Positive    Connection     `json:"positive"`
	Negative    Connection     `json:"negative"`
	Sampler     Connection     `json:"sampler"`
	Sigmas      Connection     `json:"sigmas"`
}

func (n *SamplerCustom) ClassType() string { return "SamplerCustom" }

func (n *SamplerCustom) Dependencies() []Connection {
	return connsOf(
		slot(&n.AddNoise), slot(&n.CFG), slot(&n.NoiseSeed),
		&n.Positive, &n.Negative, &n.Model, &n.LatentImage, &n.Sampler, &n.Sigmas,
	)
}

// SDTurboScheduler computes sigmas for SD-Turbo style sampling; it owns the
// step count when SamplerCustom is in play.
type SDTurboScheduler struct {
	Steps Input[int] `json:"steps"`
	Model Connection `json:"model"`
}

func (n *SDTurboScheduler) ClassType() string { return "SDTurboScheduler" }

func (n *SDTurboScheduler) Dependencies() []Connection {
	return connsOf(slot(&n.Steps), &n.Model)
}

// ImageOnlyCheckpointLoader loads an image-model checkpoint (e.g. SVD).
type ImageOnlyCheckpointLoader struct {
	CkptName Input[string] `json:"ckpt_name"`
}

func (n *ImageOnlyCheckpointLoader) ClassType() string { return "ImageOnlyCheckpointLoader" }

func (n *ImageOnlyCheckpointLoader) Dependencies() []Connection {
	return connsOf(slot(&n.CkptName))
}

// LoadImage loads a previously uploaded image by name.
type LoadImage struct {
	FileToUpload Input[string] `json:"choose file to upload"`
	Image        Input[string] `json:"image"`
}

func (n *LoadImage) ClassType() string { return "LoadImage" }

func (n *LoadImage) Dependencies() []Connection {
	return connsOf(slot(&n.FileToUpload), slot(&n.Image))
}

// SVDImg2VidConditioning builds video conditioning from an init image.
type SVDImg2VidConditioning struct {
	AugmentationLevel Input[float64] `json:"augmentation_level"`
	FPS               Input[int]     `json:"fps"`
	Width             Input[int]     `json:"width"`
	Height            Input[int]     `json:"height"`
	MotionBucketID    Input[int]     `json:"motion_bucket_id"`
	VideoFrames       Input[int]     `json:"video_frames"`
	CLIPVision        Connection     `json:"clip_vision"`
	InitImage         Connection     `json:"init_image"`
	VAE               Connection     `json:"vae"`
}

func (n *SVDImg2VidConditioning) ClassType() string { return "SVD_img2vid_Conditioning" }

func (n *SVDImg2VidConditioning) Dependencies() []Connection {
	return connsOf(
		slot(&n.AugmentationLevel), slot(&n.FPS), slot(&n.Width), slot(&n.Height),
		slot(&n.MotionBucketID), slot(&n.VideoFrames),
		&n.CLIPVision, &n.InitImage, &n.VAE,
	)
}

// VideoLinearCFGGuidance patches a model with linear cfg guidance.
type VideoLinearCFGGuidance struct {
	MinCFG Input[float64] `json:"min_cfg"`
	Model  Connection     `json:"model"`
}

func (n *VideoLinearCFGGuidance) ClassType() string { return "VideoLinearCFGGuidance" }

func (n *VideoLinearCFGGuidance) Dependencies() []Connection {
	return connsOf(slot(&n.MinCFG), &n.Model)
}

// SaveAnimatedWEBP writes an animated WEBP from a batch of images.
type SaveAnimatedWEBP struct {
	FilenamePrefix Input[string] `json:"filename_prefix"`
	FPS            Input[int]    `json:"fps"`
	Lossless       Input[bool]   `json:"lossless"`
	Method         Input[string] `json:"method"`
	Quality        Input[int]    `json:"quality"`
	Images         Connection    `json:"images"`
}

func (n *SaveAnimatedWEBP) ClassType() string { return "SaveAnimatedWEBP" }

func (n *SaveAnimatedWEBP) Dependencies() []Connection {
	return connsOf(
		slot(&n.FilenamePrefix), slot(&n.FPS), slot(&n.Lossless),
		slot(&n.Method), slot(&n.Quality),
		&n.Images,
	)
}

// LoraLoader applies a LORA to a model and CLIP pair.
type LoraLoader struct {
	LoraName      Input[string]  `json:"lora_name"`
	StrengthModel Input[float64] `json:"strength_model"`
	StrengthCLIP  Input[float64] `json:"strength_clip"`
	Model         Connection     `json:"model"`
	CLIP          Connection     `json:"clip"`
}

func (n *LoraLoader) ClassType() string { return "LoraLoader" }

func (n *LoraLoader) Dependencies() []Connection {
	return connsOf(
		slot(&n.LoraName), slot(&n.StrengthModel), slot(&n.StrengthCLIP),
		&n.Model, &n.CLIP,
	)
}

// ModelSamplingDiscrete switches a model's sampling schedule.
type ModelSamplingDiscrete struct {
	Sampling Input[string] `json:"sampling"`
	ZSNR     Input[bool]   `json:"zsnr"`
	Model    Connection    `json:"model"`
}

func (n *ModelSamplingDiscrete) ClassType() string { return "ModelSamplingDiscrete" }

func (n *ModelSamplingDiscrete) Dependencies() []Connection {
	return connsOf(slot(&n.Sampling), slot(&n.ZSNR), &n.Model)
}

// SaveImage persists images to the server's output folder.
type SaveImage struct {
	FilenamePrefix Input[string] `json:"filename_prefix"`
	Images         Connection    `json:"images"`
}

func (n *SaveImage) ClassType() string { return "SaveImage" }

func (n *SaveImage) Dependencies() []Connection {
	return connsOf(slot(&n.FilenamePrefix), &n.Images)
}

// GenericNode holds any node shape this package does not recognize, keeping
// its inputs as raw JSON for forward compatibility. It still participates in
// traversal: anything structurally resembling a connection counts as a
// dependency.
type GenericNode struct {
	Class  string
	Inputs map[string]json.RawMessage
}

func (n *GenericNode) ClassType() string { return n.Class }

// Dependencies scans the raw inputs for connection-shaped values. Keys are
// visited in sorted order so traversal over unknown shapes is deterministic.
func (n *GenericNode) Dependencies() []Connection {
	keys := make([]string, 0, len(n.Inputs))
	for k := range n.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []Connection
	for _, k := range keys {
		var c Connection
		if err := c.UnmarshalJSON(n.Inputs[k]); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// Input returns the raw JSON value of a generic input slot.
func (n *GenericNode) Input(key string) (json.RawMessage, bool) {
	v, ok := n.Inputs[key]
	return v, ok
}

// SetInput replaces the raw JSON value of a generic input slot.
func (n *GenericNode) SetInput(key string, value json.RawMessage) {
	if n.Inputs == nil {
		n.Inputs = make(map[string]json.RawMessage)
	}
	n.Inputs[key] = value
}

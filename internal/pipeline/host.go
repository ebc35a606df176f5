package pipeline

import (
	"context"
	"image"

	"asset-thumbnailer/internal/mathutil"
	"asset-thumbnailer/internal/scene"
)

// Host is the rendering engine capability the pipeline drives. A host owns
// the scene, the canvas and an independently running render loop; the
// pipeline only configures it and reads frames back.
type Host interface {
	// Load decodes the asset and places it under an identity group node.
	Load(ctx context.Context, assetPath string) (SceneHandle, error)
	SetTransform(t Transform)
	// ComputeBoundingBox measures the group in world space at call time.
	ComputeBoundingBox() mathutil.Box3
	SetCamera(c Camera)
	AddDefaultLights()
	SetEnvironment(env *scene.Environment)
	// PrepareMaterials makes every surface double-sided and marks material
	// state dirty after a world change.
	PrepareMaterials()
	// NewAnimationDriver binds a clip player to the group node.
	NewAnimationDriver() AnimationDriver
	// Animate hands the driver to the render loop. In SamplingFreeRunning
	// the loop advances it by tick every iteration; otherwise the caller
	// steps it explicitly.
	Animate(d AnimationDriver, mode SamplingMode, tick float64)
	// Capture returns the next frame the render loop publishes, cropped to rect.
	Capture(ctx context.Context, rect image.Rectangle) (image.Image, error)
}

// SceneHandle describes a loaded asset.
type SceneHandle struct {
	Name string
	// Clips holds clip names in file order. A clip is addressed by its
	// position; names may repeat.
	Clips []string
}

// AnimationDriver plays clips on the group node.
type AnimationDriver interface {
	// Play starts the clip at index i of SceneHandle.Clips.
	Play(i int) error
	// Playing returns the indices of started clips in start order.
	Playing() []int
	// Step advances every playing clip by dt seconds.
	Step(dt float64)
}

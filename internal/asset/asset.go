// Package asset decodes 3D model files into scene graphs with animation clips.
package asset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"asset-thumbnailer/internal/bmd"
	"asset-thumbnailer/internal/scene"
)

// ErrUnsupported is returned for file extensions no loader handles.
var ErrUnsupported = errors.New("asset: unsupported format")

// Asset is a loaded model: a scene graph plus its animation clips.
type Asset struct {
	Name  string
	Root  *scene.Node
	Clips []*scene.Clip
}

// ClipNames returns the clip names in file order.
func (a *Asset) ClipNames() []string {
	names := make([]string, len(a.Clips))
	for i, c := range a.Clips {
		names[i] = c.Name
	}
	return names
}

// Clip returns the clip called name, or nil.
func (a *Asset) Clip(name string) *scene.Clip {
	for _, c := range a.Clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Loader decodes one file format.
type Loader interface {
	Load(ctx context.Context, path string) (*Asset, error)
}

// Registry dispatches on the lowercase file extension.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// DefaultRegistry handles .gltf, .glb and .bmd.
func DefaultRegistry(keys bmd.Keys) *Registry {
	r := NewRegistry()
	gl := GLTFLoader{}
	r.Register(".gltf", gl)
	r.Register(".glb", gl)
	r.Register(".bmd", BMDLoader{Keys: keys})
	return r
}

// Register binds ext (with leading dot) to l.
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[strings.ToLower(ext)] = l
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load decodes path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*Asset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

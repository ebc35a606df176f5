package asset

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"asset-thumbnailer/internal/scene"
)

// clips converts glTF animations into scene clips, one per animation in
// file order. Channels the scene cannot pose (morph target weights, missing
// nodes) are skipped, but their animation still becomes a clip whose
// duration spans every sampler.
func (b *gltfBuilder) clips() ([]*scene.Clip, error) {
	clips := make([]*scene.Clip, 0, len(b.doc.Animations))
	for ai, anim := range b.doc.Animations {
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("animation-%d", ai)
		}

		var tracks []scene.Track
		for _, ch := range anim.Channels {
			if ch.Target.Node == nil || int(*ch.Target.Node) >= len(b.nodes) {
				continue
			}
			var path scene.Path
			switch ch.Target.Path {
			case gltf.TRSTranslation:
				path = scene.PathTranslation
			case gltf.TRSRotation:
				path = scene.PathRotation
			case gltf.TRSScale:
				path = scene.PathScale
			default:
				continue
			}
			si := ch.Sampler
			if si < 0 || si >= len(anim.Samplers) {
				return nil, fmt.Errorf("animation %q: sampler %d out of range", name, si)
			}
			tr, err := b.track(anim.Samplers[si], path)
			if err != nil {
				return nil, fmt.Errorf("animation %q: %w", name, err)
			}
			tr.Target = b.nodes[int(*ch.Target.Node)]
			tracks = append(tracks, tr)
		}

		c := scene.NewClip(name, tracks)
		for _, smp := range anim.Samplers {
			ts, err := b.keyTimes(smp.Input)
			if err != nil {
				return nil, fmt.Errorf("animation %q: %w", name, err)
			}
			if n := len(ts); n > 0 && float64(ts[n-1]) > c.Duration {
				c.Duration = float64(ts[n-1])
			}
		}
		clips = append(clips, c)
	}
	return clips, nil
}

func (b *gltfBuilder) keyTimes(input int) ([]float32, error) {
	in, err := b.accessor(input)
	if err != nil {
		return nil, err
	}
	raw, err := modeler.ReadAccessor(b.doc, in, nil)
	if err != nil {
		return nil, fmt.Errorf("read key times: %w", err)
	}
	ts, ok := raw.([]float32)
	if !ok {
		return nil, fmt.Errorf("key times have type %T", raw)
	}
	return ts, nil
}

func (b *gltfBuilder) track(s *gltf.AnimationSampler, path scene.Path) (scene.Track, error) {
	ts, err := b.keyTimes(s.Input)
	if err != nil {
		return scene.Track{}, err
	}

	out, err := b.accessor(s.Output)
	if err != nil {
		return scene.Track{}, err
	}
	raw, err := modeler.ReadAccessor(b.doc, out, nil)
	if err != nil {
		return scene.Track{}, fmt.Errorf("read key values: %w", err)
	}
	values, err := keyValues(raw)
	if err != nil {
		return scene.Track{}, err
	}

	tr := scene.Track{Path: path, Times: make([]float64, len(ts))}
	for i, t := range ts {
		tr.Times[i] = float64(t)
	}
	switch s.Interpolation {
	case gltf.InterpolationStep:
		tr.Interp = scene.InterpStep
	case gltf.InterpolationCubicSpline:
		// Keep the value of each (in-tangent, value, out-tangent) triple
		// and interpolate linearly
		kept := make([][4]float64, 0, len(values)/3)
		for i := 1; i < len(values); i += 3 {
			kept = append(kept, values[i])
		}
		values = kept
	}
	tr.Values = values
	if len(tr.Values) < len(tr.Times) {
		return scene.Track{}, fmt.Errorf("%d key values for %d key times", len(tr.Values), len(tr.Times))
	}
	return tr, nil
}

// keyValues widens accessor output to [4]float64, decoding normalized
// integer quaternions.
func keyValues(raw any) ([][4]float64, error) {
	switch v := raw.(type) {
	case [][3]float32:
		out := make([][4]float64, len(v))
		for i, e := range v {
			out[i] = [4]float64{float64(e[0]), float64(e[1]), float64(e[2])}
		}
		return out, nil
	case [][4]float32:
		out := make([][4]float64, len(v))
		for i, e := range v {
			out[i] = [4]float64{float64(e[0]), float64(e[1]), float64(e[2]), float64(e[3])}
		}
		return out, nil
	case [][4]int8:
		out := make([][4]float64, len(v))
		for i, e := range v {
			for k := 0; k < 4; k++ {
				out[i][k] = max(float64(e[k])/127, -1)
			}
		}
		return out, nil
	case [][4]int16:
		out := make([][4]float64, len(v))
		for i, e := range v {
			for k := 0; k < 4; k++ {
				out[i][k] = max(float64(e[k])/32767, -1)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("key values have type %T", raw)
}

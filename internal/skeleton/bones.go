// Package skeleton turns BMD bones and actions into scene nodes and clips.
package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"asset-thumbnailer/internal/bmd"
	"asset-thumbnailer/internal/mathutil"
	"asset-thumbnailer/internal/scene"
)

// KeyRate is the BMD playback rate in keyframes per second.
const KeyRate = 10.0

// Rig is the node hierarchy built from a BMD skeleton.
type Rig struct {
	// Bones is indexed like the BMD bone table. Dummy bones get identity
	// nodes so vertex bone indices stay valid.
	Bones []*scene.Node
}

// BuildRig creates one node per bone in bind pose and attaches roots under
// parent. Bones whose parent index is invalid or not yet defined are roots.
func BuildRig(bones []bmd.Bone, parent *scene.Node) *Rig {
	rig := &Rig{Bones: make([]*scene.Node, len(bones))}
	for i, b := range bones {
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("bone-%02d", i)
		}
		n := scene.NewNode(name)
		if !b.IsDummy {
			pos, rot := b.Bind()
			n.Translation = mgl64.Vec3(pos)
			n.Rotation = mathutil.EulerToQuat(rot[0], rot[1], rot[2])
		}
		rig.Bones[i] = n

		if !b.IsDummy && b.Parent >= 0 && b.Parent < i {
			rig.Bones[b.Parent].Add(n)
		} else {
			parent.Add(n)
		}
	}
	return rig
}

// Clips converts every action with more than one key into a looping clip
// animating the rig's bone nodes. Single-key actions are poses, not motion.
func (r *Rig) Clips(model *bmd.Model) []*scene.Clip {
	var clips []*scene.Clip
	for ai, act := range model.Actions {
		if act.NumKeys < 2 {
			continue
		}
		times := make([]float64, act.NumKeys)
		for k := range times {
			times[k] = float64(k) / KeyRate
		}

		var tracks []scene.Track
		for bi, b := range model.Bones {
			if b.IsDummy || ai >= len(b.Actions) || len(b.Actions[ai].Positions) == 0 {
				continue
			}
			keys := b.Actions[ai]
			pos := make([][4]float64, len(keys.Positions))
			for k, p := range keys.Positions {
				pos[k] = [4]float64{float64(p[0]), float64(p[1]), float64(p[2])}
			}
			rot := make([][4]float64, len(keys.Rotations))
			for k, e := range keys.Rotations {
				q := mathutil.EulerToQuat(float64(e[0]), float64(e[1]), float64(e[2]))
				rot[k] = [4]float64{q.V[0], q.V[1], q.V[2], q.W}
			}
			target := r.Bones[bi]
			tracks = append(tracks,
				scene.Track{Target: target, Path: scene.PathTranslation, Times: times, Values: pos},
				scene.Track{Target: target, Path: scene.PathRotation, Times: times, Values: rot},
			)
		}
		if len(tracks) == 0 {
			continue
		}
		clip := scene.NewClip(fmt.Sprintf("action-%02d", ai), tracks)
		// Hold the last key for one key interval before looping
		clip.Duration = float64(act.NumKeys) / KeyRate
		clips = append(clips, clip)
	}
	return clips
}

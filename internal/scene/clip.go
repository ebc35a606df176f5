package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Path names the node property a track animates.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
)

// Track animates one property of one node. Rotation values are quaternions
// stored as (x, y, z, w); translation and scale use the first three components.
type Track struct {
	Target *Node
	Path   Path
	Times  []float64
	Values [][4]float64
	Interp Interpolation
}

// Clip is a named set of tracks played together.
type Clip struct {
	Name     string
	Duration float64
	Tracks   []Track
}

// NewClip builds a clip and derives its duration from the last keyframe of any track.
func NewClip(name string, tracks []Track) *Clip {
	c := &Clip{Name: name, Tracks: tracks}
	for _, t := range tracks {
		if n := len(t.Times); n > 0 && t.Times[n-1] > c.Duration {
			c.Duration = t.Times[n-1]
		}
	}
	return c
}

// Apply writes the clip's pose at time t (seconds) into the target nodes.
func (c *Clip) Apply(t float64) {
	for i := range c.Tracks {
		c.Tracks[i].apply(t)
	}
}

func (tr *Track) apply(t float64) {
	if tr.Target == nil || len(tr.Times) == 0 || len(tr.Values) < len(tr.Times) {
		return
	}
	v := tr.sample(t)
	switch tr.Path {
	case PathTranslation:
		tr.Target.Translation = mgl64.Vec3{v[0], v[1], v[2]}
	case PathScale:
		tr.Target.Scale = mgl64.Vec3{v[0], v[1], v[2]}
	case PathRotation:
		tr.Target.Rotation = mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}.Normalize()
	}
}

func (tr *Track) sample(t float64) [4]float64 {
	n := len(tr.Times)
	if n == 1 || t <= tr.Times[0] {
		return tr.Values[0]
	}
	if t >= tr.Times[n-1] {
		return tr.Values[n-1]
	}

	// Find surrounding keyframes (times are sorted ascending)
	next := 1
	for next < n && tr.Times[next] <= t {
		next++
	}
	prev := next - 1
	if tr.Interp == InterpStep {
		return tr.Values[prev]
	}

	span := tr.Times[next] - tr.Times[prev]
	f := 0.0
	if span > 0 {
		f = (t - tr.Times[prev]) / span
	}
	a, b := tr.Values[prev], tr.Values[next]

	if tr.Path == PathRotation {
		qa := mgl64.Quat{W: a[3], V: mgl64.Vec3{a[0], a[1], a[2]}}
		qb := mgl64.Quat{W: b[3], V: mgl64.Vec3{b[0], b[1], b[2]}}
		if qa.Dot(qb) < 0 {
			qb = qb.Scale(-1)
		}
		q := mgl64.QuatSlerp(qa, qb, f)
		return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
	}

	var out [4]float64
	for k := 0; k < 4; k++ {
		out[k] = a[k] + f*(b[k]-a[k])
	}
	return out
}

// wrap maps an ever-increasing time onto the clip's loop.
func (c *Clip) wrap(t float64) float64 {
	if c.Duration <= 0 {
		return 0
	}
	return math.Mod(t, c.Duration)
}

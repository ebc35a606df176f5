package pipeline

import "fmt"

// ClipMode selects which clips the detector starts.
type ClipMode int

const (
	PlayAll ClipMode = iota
	PlayFirst
	PlayNamed
)

// ClipPolicy decides which clips play. Conflicting clips are never resolved;
// under PlayAll the last clip to write a node wins.
type ClipPolicy struct {
	Mode ClipMode
	Name string // clip to play under PlayNamed
}

// ParseClipPolicy parses "all", "first" or "named" together with a clip name.
func ParseClipPolicy(mode, name string) (ClipPolicy, error) {
	switch mode {
	case "", "all":
		return ClipPolicy{Mode: PlayAll}, nil
	case "first":
		return ClipPolicy{Mode: PlayFirst}, nil
	case "named":
		if name == "" {
			return ClipPolicy{}, fmt.Errorf("pipeline: clip policy %q needs a clip name", mode)
		}
		return ClipPolicy{Mode: PlayNamed, Name: name}, nil
	}
	return ClipPolicy{}, fmt.Errorf("pipeline: unknown clip policy %q", mode)
}

func (p ClipPolicy) String() string {
	switch p.Mode {
	case PlayFirst:
		return "first"
	case PlayNamed:
		return "named(" + p.Name + ")"
	}
	return "all"
}

// SamplingMode decides who advances the animation between captures.
type SamplingMode int

const (
	// SamplingFreeRunning lets the render loop tick on its own; each capture
	// samples whatever state the loop reached.
	SamplingFreeRunning SamplingMode = iota
	// SamplingDeterministic pauses the loop's ticking and advances the driver
	// by exactly one tick before every capture.
	SamplingDeterministic
)

// ParseSamplingMode parses "free-running" or "deterministic".
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch s {
	case "", "free-running":
		return SamplingFreeRunning, nil
	case "deterministic":
		return SamplingDeterministic, nil
	}
	return 0, fmt.Errorf("pipeline: unknown sampling mode %q", s)
}

func (m SamplingMode) String() string {
	if m == SamplingDeterministic {
		return "deterministic"
	}
	return "free-running"
}

// AnimationState is built once after load and never changes.
type AnimationState struct {
	Present bool
	Driver  AnimationDriver
}

// DetectAnimation reports whether the asset has clips and, if so, binds a
// driver to the group and starts the clips the policy selects.
func DetectAnimation(h Host, handle SceneHandle, policy ClipPolicy) (AnimationState, error) {
	if len(handle.Clips) == 0 {
		return AnimationState{}, nil
	}

	var play []int
	switch policy.Mode {
	case PlayFirst:
		play = []int{0}
	case PlayNamed:
		// The first clip carrying the name wins
		for i, c := range handle.Clips {
			if c == policy.Name {
				play = []int{i}
				break
			}
		}
		if play == nil {
			return AnimationState{}, fmt.Errorf("pipeline: clip %q not found in %s (have %v)", policy.Name, handle.Name, handle.Clips)
		}
	default:
		play = make([]int, len(handle.Clips))
		for i := range play {
			play[i] = i
		}
	}

	d := h.NewAnimationDriver()
	for _, i := range play {
		if err := d.Play(i); err != nil {
			return AnimationState{}, fmt.Errorf("pipeline: play clip %d %q: %w", i, handle.Clips[i], err)
		}
	}
	return AnimationState{Present: true, Driver: d}, nil
}

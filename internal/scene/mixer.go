package scene

// Action is one clip bound to a mixer with its own playback time.
type Action struct {
	Clip    *Clip
	Time    float64
	playing bool
}

// Play starts (or resumes) the action.
func (a *Action) Play() *Action {
	a.playing = true
	return a
}

// Stop halts the action and rewinds it.
func (a *Action) Stop() {
	a.playing = false
	a.Time = 0
}

// IsPlaying reports whether the action advances on Update.
func (a *Action) IsPlaying() bool {
	return a.playing
}

// Mixer drives clip actions for the subtree under its root.
// Playing actions are applied in the order they were created; when two clips
// animate the same property the later one wins.
type Mixer struct {
	root    *Node
	actions []*Action
	elapsed float64
}

// NewMixer returns a mixer bound to root.
func NewMixer(root *Node) *Mixer {
	return &Mixer{root: root}
}

// Root returns the node the mixer is bound to.
func (m *Mixer) Root() *Node {
	return m.root
}

// ClipAction returns the action for c, creating it on first use.
func (m *Mixer) ClipAction(c *Clip) *Action {
	for _, a := range m.actions {
		if a.Clip == c {
			return a
		}
	}
	a := &Action{Clip: c}
	m.actions = append(m.actions, a)
	return a
}

// Actions returns all actions created on the mixer.
func (m *Mixer) Actions() []*Action {
	return m.actions
}

// Playing returns the number of playing actions.
func (m *Mixer) Playing() int {
	n := 0
	for _, a := range m.actions {
		if a.playing {
			n++
		}
	}
	return n
}

// Elapsed returns the total simulated time advanced through Update.
func (m *Mixer) Elapsed() float64 {
	return m.elapsed
}

// Update advances every playing action by dt seconds and applies the new pose.
func (m *Mixer) Update(dt float64) {
	m.elapsed += dt
	for _, a := range m.actions {
		if !a.playing {
			continue
		}
		a.Time = a.Clip.wrap(a.Time + dt)
		a.Clip.Apply(a.Time)
	}
}

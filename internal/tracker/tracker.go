package tracker

import (
	"time"
)

// Transition is the outcome of one reachability observation.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionCameOnline
	TransitionWentOffline
)

// SceneLights names the switch-driven lights of one scene for trigger
// detection.
type SceneLights struct {
	SceneID  string
	LightIDs []string
}

// Trigger is emitted when all lights of a scene came back online within the
// clustering window.
type Trigger struct {
	SceneID     string
	TriggeredAt time.Time
}

type lightState struct {
	reachable         bool
	lastReachableAt   time.Time // zero until an unreachable->reachable transition is seen
	lastUnreachableAt time.Time
}

// Tracker maintains per-light reachability state across poll ticks and
// detects clustered came-back-online events per scene.
//
// The tracker is owned exclusively by the poll loop; it is not safe for
// concurrent use and holds no state beyond process lifetime.
type Tracker struct {
	lights map[string]*lightState
	fresh  map[string]bool // lights that came online during the current tick
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		lights: make(map[string]*lightState),
		fresh:  make(map[string]bool),
	}
}

// Observe records one reachability observation and returns the transition
// it caused. The first observation of a light seeds its state without
// reporting a transition, so a restart does not re-fire scenes that were
// already on.
func (t *Tracker) Observe(id string, reachable bool, at time.Time) Transition {
	st, ok := t.lights[id]
	if !ok {
		t.lights[id] = &lightState{reachable: reachable}
		return TransitionNone
	}

	if st.reachable == reachable {
		return TransitionNone
	}

	st.reachable = reachable
	if reachable {
		st.lastReachableAt = at
		t.fresh[id] = true
		return TransitionCameOnline
	}
	st.lastUnreachableAt = at
	return TransitionWentOffline
}

// Reachable reports the last observed reachability of a light. Unknown
// lights are reported unreachable.
func (t *Tracker) Reachable(id string) bool {
	st, ok := t.lights[id]
	return ok && st.reachable
}

// Triggers returns the scenes whose entire light set came back online with
// transition timestamps spread at most window apart. Consumes the current
// tick's transitions: call exactly once per tick, after all observations.
//
// A fired cluster is cleared so the same event cannot retrigger until the
// lights go unreachable and return again.
func (t *Tracker) Triggers(scenes []SceneLights, window time.Duration, now time.Time) []Trigger {
	defer func() {
		t.fresh = make(map[string]bool)
	}()

	var triggers []Trigger
	for _, scene := range scenes {
		if t.clustered(scene.LightIDs, window) {
			triggers = append(triggers, Trigger{SceneID: scene.SceneID, TriggeredAt: now})
		}
	}

	// Clear transition records only after collecting all candidates, so
	// scenes sharing lights see a consistent view within the tick.
	for _, trig := range triggers {
		for _, scene := range scenes {
			if scene.SceneID != trig.SceneID {
				continue
			}
			for _, id := range scene.LightIDs {
				if st, ok := t.lights[id]; ok {
					st.lastReachableAt = time.Time{}
				}
			}
		}
	}

	return triggers
}

func (t *Tracker) clustered(lightIDs []string, window time.Duration) bool {
	if len(lightIDs) == 0 {
		return false
	}

	var min, max time.Time
	anyFresh := false

	for _, id := range lightIDs {
		st, ok := t.lights[id]
		if !ok || !st.reachable || st.lastReachableAt.IsZero() {
			return false
		}
		if t.fresh[id] {
			anyFresh = true
		}
		if min.IsZero() || st.lastReachableAt.Before(min) {
			min = st.lastReachableAt
		}
		if max.IsZero() || st.lastReachableAt.After(max) {
			max = st.lastReachableAt
		}
	}

	return anyFresh && max.Sub(min) <= window
}

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anhoff/huewatchd/internal/astro"
	"github.com/anhoff/huewatchd/internal/hue"
	"github.com/anhoff/huewatchd/internal/schedule"
	"github.com/anhoff/huewatchd/internal/tracker"
)

// Bridge is the subset of the Hue client the engine needs.
type Bridge interface {
	GetLights(ctx context.Context) ([]hue.Light, error)
	GetScenes(ctx context.Context) ([]hue.Scene, error)
	ActivateScene(ctx context.Context, sceneID string) error
	SetLightState(ctx context.Context, lightID string, on bool) error
}

// SunProvider resolves solar events for a calendar day.
type SunProvider interface {
	Times(t time.Time) (astro.Times, error)
}

// Status describes the health of the poll loop.
type Status struct {
	LastTick            time.Time
	LastSuccess         time.Time
	ConsecutiveFailures int
}

// Engine runs the poll loop: it observes light reachability, detects
// switched-on scenes, evaluates their time windows and issues bridge
// commands. All cross-tick state lives in the tracker; the engine itself
// only caches parsed names and loop health.
type Engine struct {
	bridge Bridge
	sun    SunProvider
	tz     *time.Location

	interval           time.Duration
	reachabilityWindow time.Duration
	tickTimeout        time.Duration

	tracker *tracker.Tracker
	parsed  map[string]schedule.Parsed

	mu     sync.RWMutex
	status Status

	now func() time.Time
}

// New creates an engine. The timezone determines the local day used for
// window evaluation.
func New(bridge Bridge, sun SunProvider, tz *time.Location, interval, reachabilityWindow, tickTimeout time.Duration) *Engine {
	if tz == nil {
		tz = time.UTC
	}
	return &Engine{
		bridge:             bridge,
		sun:                sun,
		tz:                 tz,
		interval:           interval,
		reachabilityWindow: reachabilityWindow,
		tickTimeout:        tickTimeout,
		tracker:            tracker.New(),
		parsed:             make(map[string]schedule.Parsed),
		now:                time.Now,
	}
}

// Run executes one tick every interval until the context is cancelled.
// Ticks never overlap: the next one is not scheduled until the previous
// tick's bridge calls returned.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", e.interval).
		Dur("reachability_window", e.reachabilityWindow).
		Msg("Engine started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Engine stopped")
			return nil
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, e.tickTimeout)
			err := e.Tick(tickCtx)
			cancel()
			e.recordTick(err)
			if err != nil {
				log.Error().Err(err).Msg("Tick failed, reachability state retained for next tick")
			}
		}
	}
}

// Status returns the current loop health.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) recordTick(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.LastTick = time.Now()
	if err != nil {
		e.status.ConsecutiveFailures++
		return
	}
	e.status.ConsecutiveFailures = 0
	e.status.LastSuccess = e.status.LastTick
}

// scene is one bridge scene with its name annotations resolved.
type scene struct {
	id          string
	displayName string
	windows     []schedule.Window
	lightIDs    []string // switch-driven, tracked for reachability
	attachedIDs []string // always powered, mirrored on/off
}

// Tick runs a single poll pass. A returned error means the whole tick was
// abandoned (bridge unreachable); per-command failures are logged and do
// not abort the rest of the tick. The current time is captured once and
// reused throughout the pass.
func (e *Engine) Tick(ctx context.Context) error {
	now := e.now()
	logger := log.With().Str("tick", uuid.NewString()[:8]).Logger()

	lights, err := e.bridge.GetLights(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch lights: %w", err)
	}
	rawScenes, err := e.bridge.GetScenes(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch scenes: %w", err)
	}

	// Lights marked (att) in their own name are always powered and never
	// evaluated for reachability.
	attachedLights := make(map[string]bool)
	for _, l := range lights {
		if e.parse(l.Name).Attached {
			attachedLights[l.ID] = true
		}
	}

	scenes := e.buildScenes(rawScenes, attachedLights)

	wentOffline := e.observe(logger, lights, attachedLights, now)

	sceneLights := make([]tracker.SceneLights, 0, len(scenes))
	for _, sc := range scenes {
		sceneLights = append(sceneLights, tracker.SceneLights{SceneID: sc.id, LightIDs: sc.lightIDs})
	}
	triggers := e.tracker.Triggers(sceneLights, e.reachabilityWindow, now)

	var sun *astro.Times
	if st, sunErr := e.sun.Times(now); sunErr != nil {
		logger.Warn().Err(sunErr).Msg("No solar events today, solar-anchored windows treated as inactive")
	} else {
		sun = &st
	}

	localNow := now.In(e.tz)
	nowMin := localNow.Hour()*60 + localNow.Minute()

	e.activate(ctx, logger, scenes, triggers, nowMin, sun)
	e.mirrorOff(ctx, logger, scenes, wentOffline)

	return nil
}

func (e *Engine) buildScenes(rawScenes []hue.Scene, attachedLights map[string]bool) []scene {
	scenes := make([]scene, 0, len(rawScenes))
	for _, rs := range rawScenes {
		p := e.parse(rs.Name)
		sc := scene{
			id:          rs.ID,
			displayName: p.DisplayName,
			windows:     p.Windows,
		}
		for _, lightID := range rs.Lights {
			// A scene-level (att) marks every member light as attached;
			// such scenes are mirrored but never trigger themselves.
			if p.Attached || attachedLights[lightID] {
				sc.attachedIDs = append(sc.attachedIDs, lightID)
			} else {
				sc.lightIDs = append(sc.lightIDs, lightID)
			}
		}
		scenes = append(scenes, sc)
	}
	return scenes
}

// observe feeds the tick's reachability observations into the tracker and
// returns the lights that went offline this tick.
func (e *Engine) observe(logger zerolog.Logger, lights []hue.Light, attachedLights map[string]bool, now time.Time) []string {
	var wentOffline []string
	for _, l := range lights {
		if attachedLights[l.ID] {
			continue
		}
		switch e.tracker.Observe(l.ID, l.State.Reachable, now) {
		case tracker.TransitionCameOnline:
			logger.Info().Str("light", l.Name).Str("id", l.ID).Msg("Light is reachable again")
		case tracker.TransitionWentOffline:
			logger.Info().Str("light", l.Name).Str("id", l.ID).Msg("Light is not reachable anymore")
			wentOffline = append(wentOffline, l.ID)
		}
	}
	return wentOffline
}

// activate resolves triggers against the current time windows and issues
// scene activations. When several triggered scenes control the same light
// set, the one whose active window started most recently wins.
func (e *Engine) activate(ctx context.Context, logger zerolog.Logger, scenes []scene, triggers []tracker.Trigger, nowMin int, sun *astro.Times) {
	type candidate struct {
		sc         scene
		sinceStart int
	}
	best := make(map[string]candidate)

	for _, trig := range triggers {
		sc, ok := findScene(scenes, trig.SceneID)
		if !ok {
			continue
		}
		sinceStart, active := activeSince(sc.windows, nowMin, sun)
		if !active {
			logger.Info().
				Str("scene", sc.displayName).
				Msg("Reachability trigger outside scene time windows, dropped")
			continue
		}

		key := lightSetKey(sc.lightIDs)
		if prev, exists := best[key]; !exists || sinceStart < prev.sinceStart {
			best[key] = candidate{sc: sc, sinceStart: sinceStart}
		}
	}

	for _, cand := range best {
		if err := e.bridge.ActivateScene(ctx, cand.sc.id); err != nil {
			logger.Error().Err(err).Str("scene", cand.sc.displayName).Msg("Failed to activate scene")
			continue
		}
		logger.Info().Str("scene", cand.sc.displayName).Msg("Scene activated")

		for _, lightID := range cand.sc.attachedIDs {
			if err := e.bridge.SetLightState(ctx, lightID, true); err != nil {
				logger.Error().Err(err).Str("light", lightID).Msg("Failed to turn on attached light")
			}
		}
	}
}

// mirrorOff turns off the attached lights of every scene that lost a
// switch-driven light this tick, mirroring the physical switch.
func (e *Engine) mirrorOff(ctx context.Context, logger zerolog.Logger, scenes []scene, wentOffline []string) {
	if len(wentOffline) == 0 {
		return
	}

	offline := make(map[string]bool, len(wentOffline))
	for _, id := range wentOffline {
		offline[id] = true
	}

	turnOff := make(map[string]string) // attached light -> owning scene name
	for _, sc := range scenes {
		for _, lightID := range sc.lightIDs {
			if offline[lightID] {
				for _, attachedID := range sc.attachedIDs {
					turnOff[attachedID] = sc.displayName
				}
				break
			}
		}
	}

	for lightID, sceneName := range turnOff {
		if err := e.bridge.SetLightState(ctx, lightID, false); err != nil {
			logger.Error().Err(err).Str("light", lightID).Msg("Failed to turn off attached light")
			continue
		}
		logger.Info().
			Str("light", lightID).
			Str("scene", sceneName).
			Msg("Attached light turned off")
	}
}

// parse caches name parsing per raw name; bridge names rarely change.
func (e *Engine) parse(rawName string) schedule.Parsed {
	if p, ok := e.parsed[rawName]; ok {
		return p
	}
	p := schedule.Parse(rawName)
	e.parsed[rawName] = p
	return p
}

func findScene(scenes []scene, id string) (scene, bool) {
	for _, sc := range scenes {
		if sc.id == id {
			return sc, true
		}
	}
	return scene{}, false
}

// activeSince returns the minutes elapsed since the most recently started
// active window, or active=false when no window contains nowMin.
func activeSince(windows []schedule.Window, nowMin int, sun *astro.Times) (sinceStart int, active bool) {
	for _, w := range windows {
		if !w.Active(nowMin, sun) {
			continue
		}
		since, ok := w.SinceStart(nowMin, sun)
		if !ok {
			continue
		}
		if !active || since < sinceStart {
			sinceStart = since
			active = true
		}
	}
	return sinceStart, active
}

// lightSetKey builds an order-independent identity for a scene's light set,
// used to tie-break scenes controlling the same lights.
func lightSetKey(lightIDs []string) string {
	ids := make([]string, len(lightIDs))
	copy(ids, lightIDs)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

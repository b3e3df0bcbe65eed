package ui

import (
	"log/slog"

	"github.com/atotto/clipboard"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/game"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

const controlsLegend = "Click: drop | 1-3: skill | 0: clear | R: reset | Space: pause | +/-: speed | C: copy | H: overlays | Right click: inspect"

// Viewer drives a game from raylib input and draws it.
type Viewer struct {
	game *game.Game

	layout    Layout
	hud       *HUD
	board     *Board
	stats     *StatsPanel
	perf      *PerfPanel
	inspector *Inspector
	overlays  *OverlayRegistry
	controls  *ControlsPanel

	screenW, screenH int32

	paused      bool
	speed       int
	aimX        float32
	selected    uint32
	hasSelected bool
	status      string
	statusUntil float64

	snapshot *telemetry.Snapshot
}

// NewViewer builds a viewer for g. The raylib window must already exist.
func NewViewer(g *game.Game) *Viewer {
	cfg := g.Config()
	screenW, screenH := int32(cfg.Screen.Width), int32(cfg.Screen.Height)
	layout := NewLayout(screenW, screenH, cfg.Derived.ContainerW, cfg.Derived.ContainerH)
	tiers := g.Tiers()

	radius := func(t components.Tier) float32 { return tiers.Info(t).Radius }
	tierName := func(i int) string {
		if i < 0 || i >= tiers.Len() {
			return ""
		}
		return tiers.Info(components.Tier(i)).Name
	}

	return &Viewer{
		game:      g,
		layout:    layout,
		hud:       NewHUD(screenW),
		board:     NewBoard(layout, float32(cfg.Container.CeilingY), float32(cfg.Container.SpawnerY), radius),
		stats:     NewStatsPanel(screenW-250, hudHeight+10, 240),
		perf:      NewPerfPanel(screenW-250, hudHeight+10, 240),
		inspector: NewInspector(10, hudHeight+10, 220, tierName),
		overlays:  NewOverlayRegistry(),
		controls:  NewControlsPanel(10, screenH-420, 220),
		screenW:   screenW,
		screenH:   screenH,
		speed:     1,
		aimX:      cfg.Derived.ContainerW / 2,
	}
}

// Frame handles input, advances the engine and draws one frame.
func (v *Viewer) Frame() {
	v.handleInput()
	if !v.paused {
		for i := 0; i < v.speed; i++ {
			v.game.Update()
		}
	}
	v.game.Perf().RecordFrame()
	v.snapshot = v.game.CreateSnapshot(nil)
	v.draw()
}

func (v *Viewer) setStatus(msg string) {
	v.status = msg
	v.statusUntil = rl.GetTime() + 2
}

func (v *Viewer) handleInput() {
	mouse := rl.GetMousePosition()
	if mouse.Y > float32(hudHeight) {
		v.aimX = min(max(v.layout.ToContainer(mouse).X, 0), v.layout.ContainerW)
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && v.layout.Contains(mouse) {
		v.release()
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		if f := v.board.FruitAt(v.snapshot, mouse); f != nil {
			v.selected, v.hasSelected = f.ID, true
			v.overlays.SetEnabled(OverlayInspector, true)
		} else {
			v.hasSelected = false
		}
	}

	switch {
	case rl.IsKeyPressed(rl.KeyDown), rl.IsKeyPressed(rl.KeyEnter):
		v.release()
	case rl.IsKeyPressed(rl.KeyOne):
		v.apply(ActionSkillEvolve)
	case rl.IsKeyPressed(rl.KeyTwo):
		v.apply(ActionSkillDestroy)
	case rl.IsKeyPressed(rl.KeyThree):
		v.apply(ActionSkillPower)
	case rl.IsKeyPressed(rl.KeyZero):
		v.apply(ActionSkillClear)
	case rl.IsKeyPressed(rl.KeyR):
		v.apply(ActionReset)
	case rl.IsKeyPressed(rl.KeySpace):
		v.apply(ActionPause)
	case rl.IsKeyPressed(rl.KeyC):
		v.apply(ActionCopySummary)
	case rl.IsKeyPressed(rl.KeyH):
		v.controls.Toggle()
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		v.speed = min(v.speed*2, 32)
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		v.speed = max(v.speed/2, 1)
	}

	for _, key := range v.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			v.overlays.HandleKeyPress(key)
		}
	}
}

func (v *Viewer) release() {
	if _, err := v.game.Release(game.ReleaseCommand{X: v.aimX}); err != nil {
		v.setStatus(err.Error())
	}
}

// apply performs a HUD action.
func (v *Viewer) apply(action HUDAction) {
	var skill components.Skill
	switch action {
	case ActionNone:
		return
	case ActionSkillEvolve:
		skill = components.SkillEvolve
	case ActionSkillDestroy:
		skill = components.SkillDestroy
	case ActionSkillPower:
		skill = components.SkillPower
	case ActionSkillClear:
		skill = components.SkillNone
	case ActionReset:
		if err := v.game.Reset(game.ResetCommand{}); err != nil {
			slog.Error("reset failed", "error", err)
			v.setStatus("reset failed")
		}
		v.hasSelected = false
		return
	case ActionPause:
		v.paused = !v.paused
		return
	case ActionCopySummary:
		v.copySummary()
		return
	}

	if err := v.game.ActivateSkill(game.SkillActivationCommand{Skill: skill}); err != nil {
		v.setStatus(err.Error())
	}
}

// copySummary puts the session summary on the system clipboard, falling
// back to raylib's clipboard when no system tool is available.
func (v *Viewer) copySummary() {
	summary := v.game.Summary()
	if err := clipboard.WriteAll(summary); err != nil {
		slog.Debug("system clipboard unavailable", "error", err)
		rl.SetClipboardText(summary)
	}
	v.setStatus("summary copied")
}

func (v *Viewer) heldState() (components.Tier, components.Skill, bool) {
	f := v.game.Registry().Fruit(v.game.Queue().Current())
	if f == nil {
		return 0, components.SkillNone, false
	}
	return f.Tier, f.Skill, true
}

func (v *Viewer) selectedFruit() *telemetry.FruitState {
	if !v.hasSelected || v.snapshot == nil {
		return nil
	}
	for i := range v.snapshot.Fruits {
		if v.snapshot.Fruits[i].ID == v.selected {
			return &v.snapshot.Fruits[i]
		}
	}
	return nil
}

func (v *Viewer) hudData() HUDData {
	g := v.game
	tiers := g.Tiers()
	data := HUDData{
		Score:    g.Score(),
		Best:     g.Best(),
		Session:  g.Sessions(),
		Tick:     g.CurrentTick(),
		Live:     g.Registry().Len(),
		Pending:  g.Merges().Pending(),
		Overflow: g.OverflowProgress(),
		GameOver: g.GameOver(),
		Paused:   v.paused,
		Speed:    v.speed,
		FPS:      rl.GetFPS(),
		HeldTier: "-",
	}
	if tier, skill, ok := v.heldState(); ok {
		data.HeldTier = tiers.Info(tier).Name
		if skill != components.SkillNone {
			data.HeldSkill = skill.String()
		}
	}
	data.PreviewTier = "-"
	if tier, ok := g.Queue().PreviewTier(); ok {
		data.PreviewTier = tiers.Info(tier).Name
	}
	if rl.GetTime() < v.statusUntil {
		data.Status = v.status
	}
	return data
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.Color{R: 15, G: 15, B: 20, A: 255})

	selected := v.selectedFruit()
	v.board.Draw(v.snapshot, v.overlays, selected, v.game.OverflowProgress())

	if tier, skill, ok := v.heldState(); ok && !v.game.GameOver() {
		v.board.DrawHeld(tier, v.aimX, skill)
	}
	if v.game.GameOver() {
		v.hud.DrawGameOver(v.layout.Rect(), v.game.Score())
	}

	if v.overlays.IsEnabled(OverlayStats) {
		v.stats.Draw(v.game.LastStats())
	}
	if v.overlays.IsEnabled(OverlayPerf) {
		v.perf.Draw(v.game.Perf().Stats())
	}
	if v.overlays.IsEnabled(OverlayInspector) {
		v.inspector.Draw(selected)
	}
	v.controls.Draw(v.overlays)

	v.apply(v.hud.Draw(v.hudData()))
	v.hud.DrawControls(v.screenH, controlsLegend)
}

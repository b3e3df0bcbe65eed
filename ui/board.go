package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

// Board draws the container and the fruit in a snapshot.
type Board struct {
	layout   Layout
	ceilingY float32
	spawnerY float32
	radius   func(components.Tier) float32
}

// NewBoard creates a board view. radius returns a tier's natural radius.
func NewBoard(layout Layout, ceilingY, spawnerY float32, radius func(components.Tier) float32) *Board {
	return &Board{layout: layout, ceilingY: ceilingY, spawnerY: spawnerY, radius: radius}
}

// Draw renders the container, fruit and enabled overlays.
func (b *Board) Draw(s *telemetry.Snapshot, overlays *OverlayRegistry, selected *telemetry.FruitState, overflow float32) {
	l := b.layout
	rect := l.Rect()
	rl.DrawRectangleRec(rect, rl.Color{R: 35, G: 30, B: 28, A: 255})
	rl.DrawRectangleLinesEx(rect, 3, rl.Color{R: 150, G: 120, B: 90, A: 255})

	// Ceiling line pulses red as the overflow timer runs.
	ceil := l.ToScreen(components.Vec2{Y: b.ceilingY})
	lineColor := rl.ColorLerp(rl.Color{R: 120, G: 120, B: 120, A: 200}, rl.Red, overflow)
	rl.DrawLineEx(rl.Vector2{X: rect.X, Y: ceil.Y}, rl.Vector2{X: rect.X + rect.Width, Y: ceil.Y}, 2, lineColor)

	if s == nil {
		return
	}

	for i := range s.Fruits {
		f := &s.Fruits[i]
		if !f.Visible {
			if overlays.IsEnabled(OverlayHidden) {
				b.drawOutline(f, rl.SkyBlue)
			}
			continue
		}
		b.drawFruit(f)
		if overlays.IsEnabled(OverlayVelocity) {
			b.drawVelocity(f)
		}
		if overlays.IsEnabled(OverlayIDs) {
			p := l.ToScreen(components.Vec2{X: f.X, Y: f.Y})
			rl.DrawText(fmt.Sprintf("%d", f.ID), int32(p.X)-6, int32(p.Y)-6, 12, rl.White)
		}
	}

	if overlays.IsEnabled(OverlayPairs) {
		b.drawPairs(s)
	}
	if selected != nil {
		b.drawOutline(selected, rl.White)
	}
}

func (b *Board) screenRadius(f *telemetry.FruitState) float32 {
	return b.radius(f.Tier) * f.Scale * b.layout.Scale
}

func (b *Board) drawFruit(f *telemetry.FruitState) {
	p := b.layout.ToScreen(components.Vec2{X: f.X, Y: f.Y})
	r := b.screenRadius(f)

	fill := TierColor(f.Tier)
	if f.Evolving {
		fill.A = 170
	}
	rl.DrawCircleV(p, r, fill)

	switch {
	case f.UpgradedGolden:
		rl.DrawRing(p, r-4, r, 0, 360, 32, upgradedRing)
		rl.DrawRing(p, r-8, r-5, 0, 360, 32, goldRing)
	case f.Golden:
		rl.DrawRing(p, r-4, r, 0, 360, 32, goldRing)
	}

	if f.Skill != "" {
		rl.DrawText(f.Skill[:1], int32(p.X)-4, int32(p.Y)-6, 14, rl.Black)
	}
}

func (b *Board) drawOutline(f *telemetry.FruitState, color rl.Color) {
	p := b.layout.ToScreen(components.Vec2{X: f.X, Y: f.Y})
	rl.DrawCircleLinesV(p, b.screenRadius(f)+2, color)
}

func (b *Board) drawVelocity(f *telemetry.FruitState) {
	const vecScale = 0.1
	from := b.layout.ToScreen(components.Vec2{X: f.X, Y: f.Y})
	to := b.layout.ToScreen(components.Vec2{X: f.X + f.VelX*vecScale, Y: f.Y + f.VelY*vecScale})
	rl.DrawLineV(from, to, rl.Green)
}

func (b *Board) drawPairs(s *telemetry.Snapshot) {
	pos := make(map[uint32]rl.Vector2, len(s.Fruits))
	for _, f := range s.Fruits {
		pos[f.ID] = b.layout.ToScreen(components.Vec2{X: f.X, Y: f.Y})
	}
	for _, pair := range s.Pairs {
		meet := b.layout.ToScreen(components.Vec2{X: pair.MeetingX, Y: pair.MeetingY})
		color := rl.Orange
		if pair.Phase == "growing" {
			color = rl.Lime
		}
		for _, id := range []uint32{pair.A, pair.B} {
			if p, ok := pos[id]; ok {
				rl.DrawLineV(p, meet, color)
			}
		}
		rl.DrawCircleV(meet, 3, color)
	}
}

// DrawHeld renders the fruit waiting at the spawner above x.
func (b *Board) DrawHeld(tier components.Tier, x float32, skill components.Skill) {
	r := b.radius(tier)
	x = min(max(x, r), b.layout.ContainerW-r)
	p := b.layout.ToScreen(components.Vec2{X: x, Y: b.spawnerY})

	guideTop := b.layout.ToScreen(components.Vec2{X: x, Y: b.spawnerY})
	guideBottom := b.layout.ToScreen(components.Vec2{X: x, Y: b.layout.ContainerH})
	rl.DrawLineV(guideTop, guideBottom, rl.Color{R: 255, G: 255, B: 255, A: 40})

	rl.DrawCircleV(p, r*b.layout.Scale, TierColor(tier))
	if skill != components.SkillNone {
		rl.DrawCircleLinesV(p, r*b.layout.Scale+3, rl.SkyBlue)
	}
}

// FruitAt returns the visible fruit under a screen position, or nil.
func (b *Board) FruitAt(s *telemetry.Snapshot, screen rl.Vector2) *telemetry.FruitState {
	if s == nil {
		return nil
	}
	p := b.layout.ToContainer(screen)
	for i := range s.Fruits {
		f := &s.Fruits[i]
		if !f.Visible {
			continue
		}
		dx, dy := f.X-p.X, f.Y-p.Y
		r := b.radius(f.Tier) * f.Scale
		if dx*dx+dy*dy <= r*r {
			return f
		}
	}
	return nil
}

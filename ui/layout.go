package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fruitmerge/components"
)

// Layout maps container coordinates onto the screen.
type Layout struct {
	OriginX, OriginY float32 // Screen position of the container's top-left corner
	Scale            float32 // Screen pixels per container unit
	ContainerW       float32
	ContainerH       float32
}

// hudHeight is the screen space reserved above the container.
const hudHeight = 110

// NewLayout fits a containerW x containerH box into the screen below the
// HUD strip, centered horizontally.
func NewLayout(screenW, screenH int32, containerW, containerH float32) Layout {
	const margin = 20
	availW := float32(screenW) - 2*margin
	availH := float32(screenH) - hudHeight - 2*margin
	scale := float32(1)
	if containerW > 0 && containerH > 0 {
		scale = min(availW/containerW, availH/containerH)
	}
	return Layout{
		OriginX:    (float32(screenW) - containerW*scale) / 2,
		OriginY:    hudHeight + margin,
		Scale:      scale,
		ContainerW: containerW,
		ContainerH: containerH,
	}
}

// ToScreen converts a container position to screen space.
func (l Layout) ToScreen(p components.Vec2) rl.Vector2 {
	return rl.Vector2{X: l.OriginX + p.X*l.Scale, Y: l.OriginY + p.Y*l.Scale}
}

// ToContainer converts a screen position to container space.
func (l Layout) ToContainer(v rl.Vector2) components.Vec2 {
	if l.Scale == 0 {
		return components.Vec2{}
	}
	return components.Vec2{X: (v.X - l.OriginX) / l.Scale, Y: (v.Y - l.OriginY) / l.Scale}
}

// Contains reports whether a screen position lies over the container.
func (l Layout) Contains(v rl.Vector2) bool {
	p := l.ToContainer(v)
	return p.X >= 0 && p.X <= l.ContainerW && p.Y >= 0 && p.Y <= l.ContainerH
}

// Rect returns the container rectangle in screen space.
func (l Layout) Rect() rl.Rectangle {
	return rl.Rectangle{X: l.OriginX, Y: l.OriginY, Width: l.ContainerW * l.Scale, Height: l.ContainerH * l.Scale}
}

// tierPalette colors tiers from small to large.
var tierPalette = [...]rl.Color{
	{R: 220, G: 30, B: 60, A: 255},   // cherry
	{R: 250, G: 80, B: 90, A: 255},   // strawberry
	{R: 150, G: 70, B: 200, A: 255},  // grape
	{R: 250, G: 160, B: 40, A: 255},  // orange
	{R: 240, G: 120, B: 30, A: 255},  // persimmon
	{R: 210, G: 40, B: 40, A: 255},   // apple
	{R: 230, G: 220, B: 110, A: 255}, // pear
	{R: 250, G: 180, B: 190, A: 255}, // peach
	{R: 240, G: 210, B: 60, A: 255},  // pineapple
	{R: 60, G: 170, B: 70, A: 255},   // watermelon
}

// TierColor returns the fill color for a tier.
func TierColor(t components.Tier) rl.Color {
	if int(t) < len(tierPalette) {
		return tierPalette[t]
	}
	return rl.Gray
}

var goldRing = rl.Color{R: 255, G: 215, B: 0, A: 255}
var upgradedRing = rl.Color{R: 255, G: 250, B: 200, A: 255}

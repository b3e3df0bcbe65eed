package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Score       int
	Best        int
	Session     int
	Tick        int32
	Live        int
	Pending     int
	HeldTier    string
	PreviewTier string
	HeldSkill   string
	Overflow    float32 // 0..1
	GameOver    bool
	Paused      bool
	Speed       int
	FPS         int32
	Status      string
}

// HUDAction is a button press reported by the HUD.
type HUDAction int

const (
	ActionNone HUDAction = iota
	ActionSkillEvolve
	ActionSkillDestroy
	ActionSkillPower
	ActionSkillClear
	ActionReset
	ActionPause
	ActionCopySummary
)

// HUD renders the top strip and its buttons.
type HUD struct {
	renderer *Renderer
	width    int32
}

// NewHUD creates a HUD for a screen of the given width.
func NewHUD(width int32) *HUD {
	return &HUD{renderer: NewRenderer(), width: width}
}

// Draw renders the HUD and returns the button pressed this frame, if any.
func (h *HUD) Draw(data HUDData) HUDAction {
	r := h.renderer
	r.DrawPanel(0, 0, h.width, hudHeight)

	rl.DrawText(fmt.Sprintf("Score %d", data.Score), 12, 10, 24, rl.White)
	rl.DrawText(fmt.Sprintf("Best %d | Session %d", data.Best, data.Session), 12, 38, 14, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Tick %d | Live %d | Merging %d | %dx | FPS %d",
		data.Tick, data.Live, data.Pending, data.Speed, data.FPS), 12, 56, 12, rl.Gray)

	held := data.HeldTier
	if data.HeldSkill != "" {
		held += " [" + data.HeldSkill + "]"
	}
	rl.DrawText("Held: "+held, 12, 74, 14, rl.LightGray)
	rl.DrawText("Next: "+data.PreviewTier, 12, 92, 14, rl.LightGray)

	overflowColor := r.Theme.BarFill
	if data.Overflow > 0.5 {
		overflowColor = r.Theme.BarFillHigh
	}
	r.DrawBar(h.width/2-60, 92, "Overflow", data.Overflow, fmt.Sprintf("%.0f%%", data.Overflow*100), 260, overflowColor)

	action := ActionNone
	bx := float32(h.width) - 300
	buttons := []struct {
		label  string
		action HUDAction
	}{
		{"Evolve", ActionSkillEvolve},
		{"Destroy", ActionSkillDestroy},
		{"Power", ActionSkillPower},
		{"Clear", ActionSkillClear},
	}
	for i, b := range buttons {
		if gui.Button(rl.Rectangle{X: bx + float32(i)*72, Y: 10, Width: 66, Height: 26}, b.label) {
			action = b.action
		}
	}
	pauseLabel := "Pause"
	if data.Paused {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: bx, Y: 42, Width: 90, Height: 26}, pauseLabel) {
		action = ActionPause
	}
	if gui.Button(rl.Rectangle{X: bx + 96, Y: 42, Width: 90, Height: 26}, "Reset") {
		action = ActionReset
	}
	if gui.Button(rl.Rectangle{X: bx + 192, Y: 42, Width: 90, Height: 26}, "Copy") {
		action = ActionCopySummary
	}

	if data.Status != "" {
		rl.DrawText(data.Status, int32(bx), 76, 12, rl.Yellow)
	}
	return action
}

// DrawGameOver renders the end-of-session banner over the board.
func (h *HUD) DrawGameOver(board rl.Rectangle, score int) {
	rl.DrawRectangleRec(board, rl.Color{R: 0, G: 0, B: 0, A: 150})
	title := "GAME OVER"
	tw := rl.MeasureText(title, 40)
	cx := int32(board.X + board.Width/2)
	cy := int32(board.Y + board.Height/2)
	rl.DrawText(title, cx-tw/2, cy-40, 40, rl.White)
	sub := fmt.Sprintf("Score %d. Press R to play again", score)
	sw := rl.MeasureText(sub, 16)
	rl.DrawText(sub, cx-sw/2, cy+10, 16, rl.LightGray)
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-20, 12, rl.Gray)
}

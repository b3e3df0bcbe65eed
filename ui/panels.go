package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fruitmerge/telemetry"
)

func statsOf(data any) *telemetry.WindowStats {
	s, _ := data.(*telemetry.WindowStats)
	return s
}

func statInt(f func(*telemetry.WindowStats) int) func(any) float32 {
	return func(data any) float32 {
		if s := statsOf(data); s != nil {
			return float32(f(s))
		}
		return 0
	}
}

func statFloat(f func(*telemetry.WindowStats) float64) func(any) float32 {
	return func(data any) float32 {
		if s := statsOf(data); s != nil {
			return float32(f(s))
		}
		return 0
	}
}

// StatsSections describes the window stats panel.
func StatsSections() []SectionDescriptor {
	return []SectionDescriptor{
		{
			Title: "Board",
			Fields: []FieldDescriptor{
				{Label: "Live", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.Live })},
				{Label: "Max tier", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.MaxTier })},
				{Label: "Pending", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.PendingPairs })},
				{Label: "Tier mean", Widget: WidgetBar, Format: "%.2f", Range: FieldRange{Max: 9}, Getter: statFloat(func(s *telemetry.WindowStats) float64 { return s.TierMean })},
				{Label: "Tier p90", Widget: WidgetBar, Format: "%.1f", Range: FieldRange{Max: 9}, Getter: statFloat(func(s *telemetry.WindowStats) float64 { return s.TierP90 })},
			},
		},
		{
			Title: "Window",
			Fields: []FieldDescriptor{
				{Label: "Released", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.Released })},
				{Label: "Merges", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.Merges })},
				{Label: "Terminal", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.TerminalMerges }),
					Visible: func(data any) bool { s := statsOf(data); return s != nil && s.TerminalMerges > 0 }},
				{Label: "Golden", Widget: WidgetText, TextGetter: func(data any) string {
					s := statsOf(data)
					if s == nil {
						return "-"
					}
					return fmt.Sprintf("%d (+%d upgraded)", s.Golden, s.UpgradedGolden)
				}},
				{Label: "Skills", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.SkillsUsed })},
				{Label: "Points", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s *telemetry.WindowStats) int { return s.Points })},
				{Label: "Lifetime p50", Widget: WidgetText, Format: "%.1fs", Getter: statFloat(func(s *telemetry.WindowStats) float64 { return s.LifetimeP50 })},
			},
		},
	}
}

// StatsPanel renders the last telemetry window.
type StatsPanel struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
}

// NewStatsPanel creates a stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{renderer: NewRenderer(), sections: StatsSections(), x: x, y: y, width: width}
}

// Draw renders the panel. A nil stats draws a placeholder.
func (p *StatsPanel) Draw(stats *telemetry.WindowStats) {
	r := p.renderer
	pad := r.Theme.Padding

	if stats == nil {
		r.DrawPanel(p.x, p.y, p.width, r.Theme.LineHeight+pad*2)
		rl.DrawText("Waiting for first window", p.x+pad, p.y+pad, r.Theme.FontSize, r.Theme.LabelColor)
		return
	}

	height := pad*2 + r.Theme.LineHeight + 4
	for _, sd := range p.sections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(p.x, p.y, p.width, height)

	y := p.y + pad
	rl.DrawText(fmt.Sprintf("Window ending tick %d", stats.WindowEndTick), p.x+pad, y, 14, rl.White)
	y += r.Theme.LineHeight + 4
	for _, sd := range p.sections {
		y = r.DrawSection(p.x+pad, y, sd, stats, p.width-pad*2)
	}
}

// PerfPanel renders per-phase tick timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	phases := telemetry.Phases()

	height := pad*2 + (r.Theme.LineHeight+2)*int32(len(phases)+3)
	r.DrawPanel(p.x, p.y, p.width, height)

	x, y := p.x+pad, p.y+pad
	rl.DrawText("Tick Phases", x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4
	rl.DrawText(fmt.Sprintf("Avg: %s | %.0f ticks/s", stats.AvgTick.Round(time.Microsecond), stats.TicksPerSecond),
		x, y, r.Theme.FontSize, rl.Yellow)
	y += r.Theme.LineHeight
	rl.DrawText(fmt.Sprintf("Pairs %.1f (peak %d) | %.1f contacts/tick", stats.AvgPending, stats.PeakPending, stats.ContactsPerTick),
		x, y, r.Theme.FontSize, rl.LightGray)
	y += r.Theme.LineHeight

	for _, phase := range phases {
		pct := stats.Pct(phase)
		fill := r.Theme.BarFill
		if pct > 50 {
			fill = r.Theme.BarFillHigh
		}
		y = r.DrawBar(x, y, phase.String(), float32(pct/100), fmt.Sprintf("%4.1f%%", pct), p.width-pad*2, fill)
	}
}

func fruitOf(data any) *telemetry.FruitState {
	f, _ := data.(*telemetry.FruitState)
	return f
}

// InspectorSections describes the selected-fruit panel.
func InspectorSections(tierName func(int) string) []SectionDescriptor {
	text := func(f func(*telemetry.FruitState) string) func(any) string {
		return func(data any) string {
			if s := fruitOf(data); s != nil {
				return f(s)
			}
			return "-"
		}
	}
	return []SectionDescriptor{
		{
			Title: "Fruit",
			Fields: []FieldDescriptor{
				{Label: "ID", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%d", s.ID) })},
				{Label: "Tier", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string {
					return fmt.Sprintf("%d %s", s.Tier, tierName(int(s.Tier)))
				})},
				{Label: "Golden", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string {
					switch {
					case s.UpgradedGolden:
						return "upgraded"
					case s.Golden:
						return "yes"
					}
					return "no"
				})},
				{Label: "Skill", Widget: WidgetText, Visible: func(data any) bool { s := fruitOf(data); return s != nil && s.Skill != "" },
					TextGetter: text(func(s *telemetry.FruitState) string { return s.Skill })},
				{Label: "Merging", Widget: WidgetText, Visible: func(data any) bool { s := fruitOf(data); return s != nil && s.Evolving },
					TextGetter: text(func(*telemetry.FruitState) string { return "yes" })},
			},
		},
		{
			Title: "Body",
			Fields: []FieldDescriptor{
				{Label: "Position", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%.0f, %.0f", s.X, s.Y) })},
				{Label: "Velocity", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%.0f, %.0f", s.VelX, s.VelY) })},
				{Label: "Scale", Widget: WidgetBar, Format: "%.2f", Range: DefaultRange(), Getter: func(data any) float32 {
					if s := fruitOf(data); s != nil {
						return s.Scale
					}
					return 0
				}},
				{Label: "Mass", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%.1f", s.Mass) })},
			},
		},
		{
			Title:   "Lifetime",
			Visible: func(data any) bool { s := fruitOf(data); return s != nil && s.Lifetime != nil },
			Fields: []FieldDescriptor{
				{Label: "Age", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%.1fs", s.Lifetime.SurvivalTimeSec) })},
				{Label: "Contacts", Widget: WidgetText, TextGetter: text(func(s *telemetry.FruitState) string { return fmt.Sprintf("%d", s.Lifetime.Contacts) })},
			},
		},
	}
}

// Inspector renders the selected fruit.
type Inspector struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32, tierName func(int) string) *Inspector {
	return &Inspector{renderer: NewRenderer(), sections: InspectorSections(tierName), x: x, y: y, width: width}
}

// Draw renders the inspector for f. Nothing is drawn for nil.
func (ins *Inspector) Draw(f *telemetry.FruitState) {
	if f == nil {
		return
	}
	r := ins.renderer
	pad := r.Theme.Padding

	height := pad * 2
	for _, sd := range ins.sections {
		height += r.SectionHeight(sd, f)
	}
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + pad
	for _, sd := range ins.sections {
		y = r.DrawSection(ins.x+pad, y, sd, f, ins.width-pad*2)
	}
}

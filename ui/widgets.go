package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// sectionGap separates stacked sections.
const sectionGap = 4

// Renderer draws panel chrome and descriptor rows in one theme.
type Renderer struct {
	Theme Theme
}

// NewRenderer returns a renderer using DefaultTheme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel fills and outlines a panel rectangle.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawLabelValue draws one "label: value" row and returns the next row's y.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	t := r.Theme
	rl.DrawText(label+":", x, y, t.FontSize, t.LabelColor)
	rl.DrawText(value, x+t.LabelWidth, y, t.FontSize, t.ValueColor)
	return y + t.LineHeight
}

// DrawBar draws a labelled bar filled to ratio (clamped to [0, 1]) with text
// after it, and returns the next row's y.
func (r *Renderer) DrawBar(x, y int32, label string, ratio float32, text string, width int32, fill rl.Color) int32 {
	t := r.Theme
	left := x + t.LabelWidth
	span := width - t.LabelWidth - 50

	rl.DrawText(label+":", x, y, t.FontSize, t.LabelColor)
	rl.DrawRectangle(left, y+2, span, t.BarHeight, t.BarBg)
	rl.DrawRectangle(left, y+2, int32(float32(span)*min(max(ratio, 0), 1)), t.BarHeight, fill)
	rl.DrawText(text, left+span+5, y, t.FontSize, t.ValueColor)
	return y + r.rowHeight(WidgetBar)
}

func (r *Renderer) rowHeight(w WidgetType) int32 {
	if w == WidgetBar {
		return r.Theme.LineHeight + 2
	}
	return r.Theme.LineHeight
}

// visibleRows returns the fields sd shows for data. ok is false when the
// whole section is hidden.
func visibleRows(sd SectionDescriptor, data any) (rows []FieldDescriptor, ok bool) {
	if sd.Visible != nil && !sd.Visible(data) {
		return nil, false
	}
	for _, fd := range sd.Fields {
		if fd.Visible == nil || fd.Visible(data) {
			rows = append(rows, fd)
		}
	}
	return rows, true
}

// fieldText formats a field's value for display.
func fieldText(fd FieldDescriptor, data any) string {
	switch {
	case fd.TextGetter != nil:
		return fd.TextGetter(data)
	case fd.Getter == nil:
		return ""
	case fd.Format == "":
		return fmt.Sprintf("%.2f", fd.Getter(data))
	default:
		return fmt.Sprintf(fd.Format, fd.Getter(data))
	}
}

// DrawSection draws sd's title and visible rows for data and returns the y
// below it.
func (r *Renderer) DrawSection(x, y int32, sd SectionDescriptor, data any, width int32) int32 {
	rows, ok := visibleRows(sd, data)
	if !ok {
		return y
	}
	if sd.Title != "" {
		rl.DrawText(sd.Title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += r.Theme.LineHeight
	}
	for _, fd := range rows {
		text := fieldText(fd, data)
		if fd.Widget != WidgetBar || fd.Getter == nil {
			y = r.DrawLabelValue(x, y, fd.Label, text)
			continue
		}
		y = r.DrawBar(x, y, fd.Label, fd.Range.Normalize(fd.Getter(data)), text, width, r.Theme.BarFill)
	}
	return y + sectionGap
}

// SectionHeight returns the height DrawSection uses for data.
func (r *Renderer) SectionHeight(sd SectionDescriptor, data any) int32 {
	rows, ok := visibleRows(sd, data)
	if !ok {
		return 0
	}
	h := int32(sectionGap)
	if sd.Title != "" {
		h += r.Theme.LineHeight
	}
	for _, fd := range rows {
		w := fd.Widget
		if fd.Getter == nil {
			w = WidgetText
		}
		h += r.rowHeight(w)
	}
	return h
}

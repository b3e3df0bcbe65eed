package ui

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestOverlayExclusivity(t *testing.T) {
	r := NewOverlayRegistry()

	r.SetEnabled(OverlayStats, true)
	if !r.Toggle(OverlayPerf) {
		t.Fatal("toggle perf returned false")
	}
	if r.IsEnabled(OverlayStats) {
		t.Error("enabling perf should disable stats")
	}
	if r.Toggle(OverlayPerf) {
		t.Error("second toggle should disable perf")
	}
	if r.IsEnabled(OverlayStats) {
		t.Error("disabling perf must not re-enable stats")
	}
}

func TestOverlayKeyPress(t *testing.T) {
	r := NewOverlayRegistry()

	tests := []struct {
		key    int32
		id     OverlayID
		toggle bool
	}{
		{rl.KeyP, OverlayPairs, true},
		{rl.KeyV, OverlayVelocity, true},
		{rl.KeyT, OverlayStats, true},
		{rl.KeyZ, "", false},
	}
	for _, tt := range tests {
		id, on, ok := r.HandleKeyPress(tt.key)
		if ok != tt.toggle || id != tt.id {
			t.Errorf("key %d: got (%q, %v), want (%q, %v)", tt.key, id, ok, tt.id, tt.toggle)
		}
		if ok && !on {
			t.Errorf("key %d: first press should enable", tt.key)
		}
	}
}

func TestOverlayCategoriesOrdered(t *testing.T) {
	r := NewOverlayRegistry()
	cats := r.Categories()
	if len(cats) != 2 || cats[0] != "board" || cats[1] != "panels" {
		t.Errorf("categories = %v", cats)
	}
	if n := len(r.ByCategory("board")); n != 4 {
		t.Errorf("board overlays = %d, want 4", n)
	}
	if r.Toggle("missing") {
		t.Error("unknown overlay toggled on")
	}
}

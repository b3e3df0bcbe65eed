package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
)

// SoundManager mixes event cues onto the speaker.
type SoundManager struct {
	mu          sync.Mutex
	rate        beep.SampleRate
	volume      float64
	mixer       *beep.Mixer
	initialized bool
}

// NewSoundManager creates a manager from the audio config. Nothing plays
// until Initialize succeeds.
func NewSoundManager(cfg config.AudioConfig) *SoundManager {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	return &SoundManager{
		rate:   beep.SampleRate(rate),
		volume: cfg.Volume,
		mixer:  &beep.Mixer{},
	}
}

// Initialize opens the speaker and starts the mixer.
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sm.rate, sm.rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup silences the mixer.
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// Cue returns the streamer for ev, or nil when the event is silent.
func (sm *SoundManager) Cue(ev events.Event) beep.Streamer {
	var s beep.Streamer
	switch e := ev.(type) {
	case events.MergeCompleted:
		s = MergeChime(int(e.ResultTier), sm.rate)
		if e.Terminal {
			s = beep.Seq(s, MergeChime(int(e.ResultTier)+1, sm.rate))
		}
	case events.GoldenSpawned:
		s = GoldenSparkle(e.Upgraded, sm.rate)
	case events.FruitReleased:
		s = DropClick(sm.rate)
	case events.GameOver:
		s = GameOverFall(sm.rate)
	default:
		return nil
	}
	return withVolume(s, sm.volume)
}

// OnEvent plays the cue for ev.
func (sm *SoundManager) OnEvent(ev events.Event) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	s := sm.Cue(ev)
	if s == nil {
		return
	}
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}

// Attach subscribes the manager to the events that have cues.
func (sm *SoundManager) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(sm,
		events.TypeMergeCompleted,
		events.TypeGoldenSpawned,
		events.TypeFruitReleased,
		events.TypeGameOver,
	)
}

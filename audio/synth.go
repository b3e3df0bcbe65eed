// Package audio plays short synthesized cues for engine events.
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave selects an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveTriangle
)

type oscillator struct {
	freq     float64
	phase    float64
	position int
	length   int
	wave     Wave
	rate     beep.SampleRate
}

// NewOscillator creates a finite tone of the given shape.
func NewOscillator(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &oscillator{freq: freq, length: rate.N(d), wave: wave, rate: rate}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.length {
			return i, i > 0
		}
		var v float64
		switch o.wave {
		case WaveSine:
			v = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			v = 1
			if o.phase >= 0.5 {
				v = -1
			}
		case WaveTriangle:
			v = 4*math.Abs(o.phase-0.5) - 1
		}
		samples[i][0] = v
		samples[i][1] = v

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release.
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

// NewEnvelope shapes s over d with linear attack and release ramps.
func NewEnvelope(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(d),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if e.position >= e.total {
			return i, i > 0
		}
		gain := 1.0
		if e.attack > 0 && e.position < e.attack {
			gain = float64(e.position) / float64(e.attack)
		}
		if rem := e.total - e.position; e.release > 0 && rem < e.release {
			gain = min(gain, float64(rem)/float64(e.release))
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

func withVolume(s beep.Streamer, v float64) beep.Streamer {
	if v <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(v)}
}

// pentatonic degrees in semitones; tiers walk up the scale.
var pentatonic = [...]int{0, 2, 4, 7, 9}

// TierFrequency returns the chime pitch for a merge producing tier.
// Higher tiers ring higher, one pentatonic step per tier from A4.
func TierFrequency(tier int) float64 {
	tier = max(tier, 0)
	octave, step := tier/len(pentatonic), tier%len(pentatonic)
	semitones := octave*12 + pentatonic[step]
	return 440 * math.Pow(2, float64(semitones)/12)
}

const (
	chimeDuration   = 180 * time.Millisecond
	sparkleNote     = 70 * time.Millisecond
	gameOverNote    = 220 * time.Millisecond
	releaseDuration = 40 * time.Millisecond
)

// MergeChime is a bell-like tone with an octave overtone.
func MergeChime(tier int, rate beep.SampleRate) beep.Streamer {
	f := TierFrequency(tier)
	fund := NewEnvelope(NewOscillator(f, chimeDuration, WaveSine, rate), chimeDuration, 5*time.Millisecond, 150*time.Millisecond, rate)
	over := NewEnvelope(NewOscillator(2*f, chimeDuration, WaveSine, rate), chimeDuration, 5*time.Millisecond, 90*time.Millisecond, rate)
	return beep.Mix(withVolume(fund, 0.7), withVolume(over, 0.3))
}

// GoldenSparkle is a rising three-note arpeggio. Upgrades start an octave up.
func GoldenSparkle(upgraded bool, rate beep.SampleRate) beep.Streamer {
	base := 1318.51
	if upgraded {
		base *= 2
	}
	notes := make([]beep.Streamer, 0, 3)
	for _, ratio := range []float64{1, 1.25, 1.5} {
		osc := NewOscillator(base*ratio, sparkleNote, WaveTriangle, rate)
		notes = append(notes, NewEnvelope(osc, sparkleNote, 2*time.Millisecond, 40*time.Millisecond, rate))
	}
	return withVolume(beep.Seq(notes...), 0.5)
}

// DropClick is a short low tick for releases.
func DropClick(rate beep.SampleRate) beep.Streamer {
	osc := NewOscillator(180, releaseDuration, WaveSquare, rate)
	return withVolume(NewEnvelope(osc, releaseDuration, time.Millisecond, 30*time.Millisecond, rate), 0.25)
}

// GameOverFall is a descending minor third.
func GameOverFall(rate beep.SampleRate) beep.Streamer {
	a := NewEnvelope(NewOscillator(330, gameOverNote, WaveSquare, rate), gameOverNote, 5*time.Millisecond, 100*time.Millisecond, rate)
	b := NewEnvelope(NewOscillator(277.18, 2*gameOverNote, WaveSquare, rate), 2*gameOverNote, 5*time.Millisecond, 300*time.Millisecond, rate)
	return withVolume(beep.Seq(a, b), 0.4)
}

// Package replication forwards authoritative engine outcomes to remote
// viewers over websockets. It never feeds anything back into the engine.
package replication

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pthm-cable/fruitmerge/components"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

// Message kinds on the wire.
const (
	KindBoard     = "board"
	KindMerge     = "merge"
	KindGolden    = "golden"
	KindSkill     = "skill"
	KindDestroyed = "destroyed"
	KindPreview   = "preview"
	KindScore     = "score"
	KindReleased  = "released"
	KindReset     = "reset"
	KindGameOver  = "game_over"
)

// Envelope wraps every payload with its kind and a sequence number.
type Envelope struct {
	Kind string             `json:"kind"`
	Seq  uint64             `json:"seq"`
	Data msgpack.RawMessage `json:"data,omitempty"`
}

// Merge mirrors events.MergeCompleted.
type Merge struct {
	FromTier   int     `json:"from_tier"`
	ResultTier int     `json:"result_tier"`
	Result     uint32  `json:"result,omitempty"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Terminal   bool    `json:"terminal,omitempty"`
}

// Golden mirrors events.GoldenSpawned.
type Golden struct {
	ID       uint32 `json:"id"`
	Upgraded bool   `json:"upgraded,omitempty"`
}

// Skill mirrors events.SkillUsed.
type Skill struct {
	ID    uint32 `json:"id"`
	Skill string `json:"skill"`
}

// Destroyed mirrors events.EntityDestroyed.
type Destroyed struct {
	ID     uint32 `json:"id"`
	Tier   int    `json:"tier"`
	Golden bool   `json:"golden,omitempty"`
	Cause  string `json:"cause"`
}

// Preview mirrors events.NextPreviewChanged.
type Preview struct {
	Tier int `json:"tier"`
}

// Score mirrors events.ScoreAwarded.
type Score struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// Released mirrors events.FruitReleased.
type Released struct {
	ID    uint32 `json:"id"`
	Tier  int    `json:"tier"`
	Skill string `json:"skill,omitempty"`
}

// GameOver mirrors events.GameOver.
type GameOver struct {
	Score int `json:"score"`
}

// marshal encodes v with msgpack, reusing json struct tags.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data produced by this package into v.
func Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// encodeEnvelope wraps payload in an envelope and encodes both.
func encodeEnvelope(kind string, seq uint64, payload any) ([]byte, error) {
	env := Envelope{Kind: kind, Seq: seq}
	if payload != nil {
		data, err := marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", kind, err)
		}
		env.Data = data
	}
	out, err := marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", kind, err)
	}
	return out, nil
}

// EncodeBoard encodes a board snapshot message.
func EncodeBoard(seq uint64, s *telemetry.Snapshot) ([]byte, error) {
	return encodeEnvelope(KindBoard, seq, s)
}

// EncodeEvent converts an engine event into a wire message. ok is false for
// events that are not replicated.
func EncodeEvent(seq uint64, ev events.Event) (data []byte, ok bool, err error) {
	var kind string
	var payload any

	switch e := ev.(type) {
	case events.MergeCompleted:
		kind = KindMerge
		payload = Merge{
			FromTier:   int(e.FromTier),
			ResultTier: int(e.ResultTier),
			Result:     e.Result.ID(),
			X:          e.Position.X,
			Y:          e.Position.Y,
			Terminal:   e.Terminal,
		}
	case events.GoldenSpawned:
		kind = KindGolden
		payload = Golden{ID: e.Entity.ID(), Upgraded: e.Upgraded}
	case events.SkillUsed:
		kind = KindSkill
		payload = Skill{ID: e.Entity.ID(), Skill: e.Skill.String()}
	case events.EntityDestroyed:
		kind = KindDestroyed
		payload = Destroyed{ID: e.Entity.ID(), Tier: int(e.Tier), Golden: e.Golden, Cause: e.Cause.String()}
	case events.NextPreviewChanged:
		kind = KindPreview
		payload = Preview{Tier: int(e.Tier)}
	case events.ScoreAwarded:
		kind = KindScore
		payload = Score{Points: e.Points, Reason: e.Reason.String()}
	case events.FruitReleased:
		kind = KindReleased
		r := Released{ID: e.Entity.ID(), Tier: int(e.Tier)}
		if e.Skill != components.SkillNone {
			r.Skill = e.Skill.String()
		}
		payload = r
	case events.GameReset:
		kind = KindReset
	case events.GameOver:
		kind = KindGameOver
		payload = GameOver{Score: e.Score}
	default:
		return nil, false, nil
	}

	data, err = encodeEnvelope(kind, seq, payload)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

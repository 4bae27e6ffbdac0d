package rendercomp

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// TypeTagPlayer is the Player component's registry type tag.
const TypeTagPlayer = "player"

const (
	animIdle    = "idle"
	animWalking = "walking"
	animRunning = "running"
	animJumping = "jumping"

	walkFootstepIntervalMs = 420.0
	runFootstepIntervalMs  = 260.0

	crossFadeSeconds = 0.15
)

// PlayerData configures a Player component at construction time.
type PlayerData struct {
	Node  SceneNode
	Mixer AnimationMixer

	// OnFootstep, if set, is invoked each time a walking or running
	// footstep cadence elapses.
	OnFootstep func(id simtypes.EntityID)
}

// Player is the render-side component for the single player-controlled
// entity (spec §4.6): it blends among idle/walking/running/jumping
// animation states from the grounded flag and movement input observed on
// each physics frame, and emits footstep events on a cadence that depends
// on whether the player is walking or running.
type Player struct {
	id   simtypes.EntityID
	node SceneNode
	mix  AnimationMixer

	onFootstep func(id simtypes.EntityID)

	state            string
	sinceFootstepMs  float32
	footstepInterval float32
}

func newPlayerComponent(id simtypes.EntityID, data any) (Component, error) {
	d, _ := data.(PlayerData)
	return &Player{
		id:         id,
		node:       d.Node,
		mix:        d.Mixer,
		onFootstep: d.OnFootstep,
	}, nil
}

// ID implements Component.
func (p *Player) ID() simtypes.EntityID { return p.id }

// TypeTag implements Component.
func (p *Player) TypeTag() string { return TypeTagPlayer }

// Node implements Component.
func (p *Player) Node() SceneNode { return p.node }

// Dispose implements Component.
func (p *Player) Dispose() {}

// OnPhysicsFrame implements PhysicsFrameHandler: it selects the player's
// animation state from the grounded flag and movement input (spec §4.6).
func (p *Player) OnPhysicsFrame(event PhysicsFrameEvent) {
	next := p.selectState(event)
	if next != p.state {
		p.state = next
		if p.mix != nil {
			p.mix.CrossFadeTo(next, crossFadeSeconds)
		}
		p.sinceFootstepMs = 0
		if next == animWalking {
			p.footstepInterval = walkFootstepIntervalMs
		} else if next == animRunning {
			p.footstepInterval = runFootstepIntervalMs
		}
	}
}

func (p *Player) selectState(event PhysicsFrameEvent) string {
	if !event.Grounded {
		return animJumping
	}
	input := event.Input
	moving := input.Forward || input.Backward || input.Left || input.Right
	switch {
	case !moving:
		return animIdle
	case input.Sprint:
		return animRunning
	default:
		return animWalking
	}
}

// OnTransformUpdate implements TransformUpdateHandler: it forwards the
// interpolated transform to the scene node.
func (p *Player) OnTransformUpdate(event TransformUpdateEvent) {
	if p.node != nil {
		p.node.SetTransform(event.Position, event.Rotation)
	}
}

// OnRenderFrame implements RenderFrameHandler: it advances the footstep
// cadence while walking or running.
func (p *Player) OnRenderFrame(deltaMs, _ float32) {
	if p.state != animWalking && p.state != animRunning {
		return
	}
	p.sinceFootstepMs += deltaMs
	if p.footstepInterval <= 0 {
		return
	}
	for p.sinceFootstepMs >= p.footstepInterval {
		p.sinceFootstepMs -= p.footstepInterval
		if p.onFootstep != nil {
			p.onFootstep(p.id)
		}
	}
}

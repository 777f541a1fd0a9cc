package sandbox

import (
	"fmt"
	"slices"

	"github.com/ThirdPersonSW2/extension/pkg/core"
)

func (w *World) emit(name string, payload any) (any, error) {
	if w.sink == nil {
		return nil, nil
	}
	return w.sink.Dispatch(name, payload)
}

// Frame returns the number of ticks run so far.
func (w *World) Frame() uint64 {
	return w.frame
}

// Tick advances n frames, raising tick for each.
func (w *World) Tick(n int) error {
	for range n {
		w.frame++
		if _, err := w.emit(core.EventTick, core.TickEvent{Frame: w.frame}); err != nil {
			return fmt.Errorf("frame %d: %w", w.frame, err)
		}
	}
	return nil
}

// StartRound raises round_start.
func (w *World) StartRound() error {
	_, err := w.emit(core.EventRoundStart, core.RoundStartEvent{})
	return err
}

// Command runs a registered command as caller.
func (w *World) Command(caller core.Slot, name string, args ...string) (any, error) {
	if !slices.Contains(w.commands, name) {
		return nil, fmt.Errorf("unknown command: %s", name)
	}
	return w.emit(name, core.CommandEvent{Caller: caller, Command: name, Args: args})
}

// Damage raises player_hurt, then applies whatever amounts the handlers
// left. A victim whose health drops to zero dies. It returns the applied
// health and armor damage.
func (w *World) Damage(attacker, victim core.Slot, health, armor int) (int, int, error) {
	p, ok := w.players[victim]
	if !ok || p.pawn == nil {
		return 0, 0, fmt.Errorf("slot %d has no pawn", victim)
	}

	ev := &core.HurtEvent{
		Victim:       victim,
		Attacker:     attacker,
		DamageHealth: health,
		DamageArmor:  armor,
	}
	if _, err := w.emit(core.EventPlayerHurt, ev); err != nil {
		return 0, 0, err
	}

	p.pawn.Armor = max(p.pawn.Armor-ev.DamageArmor, 0)
	p.pawn.Health -= ev.DamageHealth
	if p.pawn.Health <= 0 {
		if err := w.Kill(victim, attacker); err != nil {
			return ev.DamageHealth, ev.DamageArmor, err
		}
	}
	return ev.DamageHealth, ev.DamageArmor, nil
}

// Kill removes victim's pawn and raises player_death.
func (w *World) Kill(victim, attacker core.Slot) error {
	p, ok := w.players[victim]
	if !ok || p.pawn == nil {
		return fmt.Errorf("slot %d has no pawn", victim)
	}
	w.despawnPawn(p)

	_, err := w.emit(core.EventPlayerDeath, core.DeathEvent{Victim: victim, Attacker: attacker})
	return err
}

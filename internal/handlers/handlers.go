// Package handlers routes host events and the toggle command into the
// camera state machine.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThirdPersonSW2/extension/internal/camera"
	"github.com/ThirdPersonSW2/extension/internal/dispatcher"
	"github.com/ThirdPersonSW2/extension/internal/round"
	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

// BaseCommand is always registered.
const BaseCommand = "sw_thirdperson"

// ChatPrefix starts every message the extension prints.
const ChatPrefix = " [ThirdPerson] "

// Chat texts.
const (
	MsgNoPermission      = "You don't have permission to use this command."
	MsgActivated         = "Third Person Activated"
	MsgDeactivated       = "Third Person Deactivated"
	MsgSmoothActivated   = "Smooth Third Person Activated"
	MsgSmoothDeactivated = "Smooth Third Person Deactivated"
	MsgSpawnFailed       = "Failed to create camera."
	MsgSmoothSpawnFailed = "Failed to create smooth camera."
)

// Camera is the part of camera.Service the coordinator drives.
type Camera interface {
	Toggle(p host.Player) (camera.Transition, error)
	ForceCleanup(slot core.Slot, reason core.EndReason)
	ForceCleanupAll(reason core.EndReason)
	IsActive(p host.Player) bool
	Tick()
}

var _ Camera = (*camera.Service)(nil)

// Settings come from the plugin config.
type Settings struct {
	CommandAlias string
	AdminOnly    bool
	AdminFlag    string
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Players     host.Players
	Permissions host.Permissions
	Camera      Camera
	Round       *round.Context
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Service translates dispatcher events into camera operations.
type Service struct {
	deps     Dependencies
	settings Settings
	log      *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies, settings Settings) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		deps:     deps,
		settings: settings,
		log:      deps.Logger.With("component", "handlers"),
	}
}

// Commands returns the command names to register with the host.
func (s *Service) Commands() []string {
	cmds := []string{BaseCommand}
	if alias := s.settings.CommandAlias; alias != "" && alias != "thirdperson" {
		cmds = append(cmds, "sw_"+alias)
	}
	return cmds
}

// Register wires every handler into d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	for _, cmd := range s.Commands() {
		d.Register(cmd, s.HandleCommand, dispatcher.Logged())
	}
	d.Register(core.EventRoundStart, s.HandleRoundStart, dispatcher.Logged())
	d.Register(core.EventPlayerDeath, s.HandlePlayerDeath, dispatcher.Logged())
	d.Register(core.EventPlayerDisconnect, s.HandlePlayerDisconnect, dispatcher.Logged())
	d.Register(core.EventPlayerHurt, s.HandlePlayerHurt)
	d.Register(core.EventTick, s.HandleTick)
}

// HandleCommand toggles the caller's camera and tells them what happened.
// The result is the chat text that was printed, if any.
func (s *Service) HandleCommand(e dispatcher.Event) (any, error) {
	cmd, ok := e.Payload.(core.CommandEvent)
	if !ok {
		return nil, payloadError(e)
	}

	p, ok := s.deps.Players.PlayerBySlot(cmd.Caller)
	if !ok || !p.Valid() {
		return nil, nil
	}
	if _, ok := p.Pawn(); !ok {
		return nil, nil
	}

	if s.settings.AdminOnly && !s.allowed(p) {
		return s.reply(p, MsgNoPermission), nil
	}

	tr, err := s.deps.Camera.Toggle(p)
	switch {
	case errors.Is(err, camera.ErrSpawnFailed):
		s.log.Warn("camera spawn failed", "player", p.Key(), "mode", tr.Mode, "error", err)
		if tr.Mode == core.Smoothed {
			return s.reply(p, MsgSmoothSpawnFailed), nil
		}
		return s.reply(p, MsgSpawnFailed), nil
	case errors.Is(err, camera.ErrInvalidTarget):
		return nil, nil
	case err != nil:
		s.log.Error("toggle failed", "player", p.Key(), "error", err)
		return nil, nil
	}

	return s.reply(p, toggleMessage(tr)), nil
}

// HandleRoundStart advances the round counter and ends every session.
func (s *Service) HandleRoundStart(e dispatcher.Event) (any, error) {
	if s.deps.Round != nil {
		n := s.deps.Round.Advance(s.deps.Clock())
		s.log.Info("round started", "round", n)
	}
	s.deps.Camera.ForceCleanupAll(core.EndRoundStart)
	return nil, nil
}

// HandlePlayerDeath ends the victim's session.
func (s *Service) HandlePlayerDeath(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.DeathEvent)
	if !ok {
		return nil, payloadError(e)
	}
	if !ev.Victim.Valid() {
		return nil, nil
	}
	s.deps.Camera.ForceCleanup(ev.Victim, core.EndDeath)
	return nil, nil
}

// HandlePlayerDisconnect ends the leaving player's session.
func (s *Service) HandlePlayerDisconnect(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.DisconnectEvent)
	if !ok {
		return nil, payloadError(e)
	}
	if !ev.Player.Slot.Valid() {
		return nil, nil
	}
	s.deps.Camera.ForceCleanup(ev.Player.Slot, core.EndDisconnect)
	return nil, nil
}

// HandlePlayerHurt doubles the damage dealt by a player in third person who
// is facing the victim. The result reports whether the event was changed.
func (s *Service) HandlePlayerHurt(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.HurtEvent)
	if !ok || ev == nil {
		return nil, payloadError(e)
	}

	attacker, ok := s.deps.Players.PlayerBySlot(ev.Attacker)
	if !ok || !attacker.Valid() {
		return false, nil
	}
	victim, ok := s.deps.Players.PlayerBySlot(ev.Victim)
	if !ok || !victim.Valid() {
		return false, nil
	}
	if !s.deps.Camera.IsActive(attacker) {
		return false, nil
	}

	ap, ok := attacker.Pawn()
	if !ok {
		return false, nil
	}
	vp, ok := victim.Pawn()
	if !ok {
		return false, nil
	}
	if !geo.Facing(ap.Origin(), ap.ViewAngle().Yaw, vp.Origin()) {
		return false, nil
	}

	ev.DamageHealth += ev.DamageHealth
	ev.DamageArmor += ev.DamageArmor
	return true, nil
}

// HandleTick advances every camera by one frame.
func (s *Service) HandleTick(e dispatcher.Event) (any, error) {
	s.deps.Camera.Tick()
	return nil, nil
}

func (s *Service) allowed(p host.Player) bool {
	if s.deps.Permissions == nil {
		return false
	}
	return s.deps.Permissions.HasPermission(p.SteamID(), s.settings.AdminFlag)
}

func (s *Service) reply(p host.Player, msg string) string {
	text := ChatPrefix + msg
	p.Print(text)
	return text
}

func toggleMessage(tr camera.Transition) string {
	switch {
	case tr.Mode == core.Smoothed && tr.Activated:
		return MsgSmoothActivated
	case tr.Mode == core.Smoothed:
		return MsgSmoothDeactivated
	case tr.Activated:
		return MsgActivated
	default:
		return MsgDeactivated
	}
}

func payloadError(e dispatcher.Event) error {
	return fmt.Errorf("%s: unexpected payload %T", e.Name, e.Payload)
}

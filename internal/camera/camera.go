// Package camera owns third-person camera sessions: one camera entity per
// player, moved every tick and torn down exactly once.
package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThirdPersonSW2/extension/internal/cache"
	"github.com/ThirdPersonSW2/extension/internal/loadout"
	"github.com/ThirdPersonSW2/extension/internal/placement"
	"github.com/ThirdPersonSW2/extension/internal/round"
	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

var (
	// ErrInvalidTarget is returned when the player or its pawn is not valid.
	ErrInvalidTarget = errors.New("player or pawn is not valid")
	// ErrSpawnFailed is returned when the host could not create the camera entity.
	ErrSpawnFailed = errors.New("camera entity could not be spawned")
)

// Designer names of the entities hosting each camera kind.
const (
	SnappedEntity  = "prop_dynamic"
	SmoothedEntity = "point_camera"
)

// Session is one player's active camera.
type Session struct {
	Owner     core.PlayerKey
	SteamID   uint64
	Mode      core.Mode
	Entity    host.Entity
	Round     uint
	StartedAt time.Time
	Loadout   []core.LoadoutItem
}

// Journal receives a record for every session that ends.
type Journal interface {
	RecordSession(rec core.SessionRecord) error
}

// Settings are read once from config.
type Settings struct {
	UseSmoothed bool
	StripOnUse  bool
}

// Dependencies holds everything the Service talks to. Journal, Round and
// Clock are optional.
type Dependencies struct {
	Players  host.Players
	Entities host.Entities
	Placer   *placement.Placer
	Smoother placement.Smoother
	Ledger   *loadout.Ledger
	Journal  Journal
	Round    *round.Context
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Transition reports what Toggle did.
type Transition struct {
	Activated bool
	Mode      core.Mode
}

// Service is the per-player camera state machine. All methods except the
// metric callbacks must be called from the host thread.
type Service struct {
	deps     Dependencies
	settings Settings
	log      *slog.Logger

	snapped  *cache.Pool[core.Slot, *Session]
	smoothed *cache.Pool[core.Slot, *Session]

	metrics *metrics
}

// New creates a Service with empty pools.
func New(deps Dependencies, settings Settings) (*Service, error) {
	if deps.Players == nil || deps.Entities == nil || deps.Placer == nil {
		return nil, errors.New("camera: players, entities and placer are required")
	}
	if deps.Smoother == nil {
		deps.Smoother = placement.FixedFactor{Factor: placement.DefaultFactor}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Service{
		deps:     deps,
		settings: settings,
		log:      deps.Logger.With("component", "camera"),
		snapped:  cache.NewPool[core.Slot, *Session](),
		smoothed: cache.NewPool[core.Slot, *Session](),
	}

	m, err := newMetrics(s)
	if err != nil {
		return nil, err
	}
	s.metrics = m

	return s, nil
}

// Settings returns the settings the service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

// Toggle ends p's session if it has one, otherwise starts one in the
// configured mode.
func (s *Service) Toggle(p host.Player) (Transition, error) {
	if p == nil || !p.Valid() {
		return Transition{}, ErrInvalidTarget
	}

	if sess, ok := s.session(p.Slot()); ok {
		if sess.Owner == p.Key() {
			s.Deactivate(p)
			return Transition{Activated: false, Mode: sess.Mode}, nil
		}
		// slot changed hands without a disconnect event
		s.ForceCleanup(p.Slot(), core.EndInvalid)
	}

	mode, err := s.Activate(p)
	if err != nil {
		return Transition{Mode: mode}, err
	}
	return Transition{Activated: true, Mode: mode}, nil
}

// Activate starts a session for p in the configured mode. It is a no-op
// returning the current mode when p already has one.
func (s *Service) Activate(p host.Player) (core.Mode, error) {
	mode := s.nextMode()
	if p == nil || !p.Valid() {
		return mode, ErrInvalidTarget
	}
	pawn, ok := p.Pawn()
	if !ok || pawn == nil {
		return mode, ErrInvalidTarget
	}

	slot := p.Slot()
	if sess, ok := s.session(slot); ok {
		if sess.Owner == p.Key() {
			return sess.Mode, nil
		}
		s.ForceCleanup(slot, core.EndInvalid)
	}

	name := entityName(mode)
	ent, err := s.deps.Entities.CreateEntity(name)
	if err == nil && (ent == nil || !ent.Valid()) {
		err = errors.New("entity not valid after spawn")
	}
	if err != nil {
		s.metrics.spawnFailed(mode)
		s.log.Warn("failed to create camera entity", "player", p.Key(), "entity", name, "error", err)
		return mode, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, name, err)
	}

	if pos, ok := s.deps.Placer.InitialPosition(p); ok {
		if err := ent.Teleport(pos, pawn.ViewAngle()); err != nil {
			s.log.Debug("initial camera teleport failed", "player", p.Key(), "error", err)
		}
	}

	if err := s.deps.Entities.SetViewEntity(p, ent); err != nil {
		s.despawn(ent, p.Key())
		s.log.Warn("failed to bind view to camera", "player", p.Key(), "error", err)
		return mode, fmt.Errorf("binding view of %s: %w", p.Key(), err)
	}

	sess := &Session{
		Owner:     p.Key(),
		SteamID:   p.SteamID(),
		Mode:      mode,
		Entity:    ent,
		StartedAt: s.deps.Clock(),
	}
	if s.deps.Round != nil {
		sess.Round = s.deps.Round.Number()
	}
	s.pool(mode).Set(slot, sess)

	if s.settings.StripOnUse && s.deps.Ledger != nil {
		if err := s.deps.Ledger.Strip(p); err != nil {
			s.log.Warn("failed to strip weapons", "player", p.Key(), "error", err)
		}
		sess.Loadout = s.deps.Ledger.Items(slot)
	}

	s.metrics.activated(mode)
	s.log.Info("camera activated", "player", p.Key(), "mode", mode)
	return mode, nil
}

// Deactivate returns p's view to its pawn and ends its session.
// Without a session only the view reset happens.
func (s *Service) Deactivate(p host.Player) {
	if p == nil {
		return
	}
	if err := s.deps.Entities.ClearViewEntity(p); err != nil {
		s.log.Debug("failed to clear view entity", "player", p.Key(), "error", err)
	}

	sess, ok := s.take(p.Slot())
	if ok && sess.Owner != p.Key() {
		// belongs to an earlier connection; leave this player's items alone
		s.despawn(sess.Entity, sess.Owner)
		s.dropLoadout(p.Slot())
		s.finish(sess, core.EndInvalid)
		return
	}

	s.restoreLoadout(p)
	if ok {
		s.despawn(sess.Entity, sess.Owner)
		s.finish(sess, core.EndToggle)
	}
}

// ForceCleanup ends whatever session slot has. The live player is only
// touched when it is the connection that owns the session or loadout.
func (s *Service) ForceCleanup(slot core.Slot, reason core.EndReason) {
	sess, hadSession := s.take(slot)

	live, ok := s.deps.Players.PlayerBySlot(slot)
	liveValid := ok && live != nil && live.Valid()

	if hadSession {
		s.despawn(sess.Entity, sess.Owner)
		if liveValid && live.Key() == sess.Owner {
			if err := s.deps.Entities.ClearViewEntity(live); err != nil {
				s.log.Debug("failed to clear view entity", "player", live.Key(), "error", err)
			}
		}
	}

	if liveValid {
		s.restoreLoadout(live)
	} else {
		s.dropLoadout(slot)
	}

	if hadSession {
		s.finish(sess, reason)
	}
}

// ForceCleanupAll ends every session and empties the loadout ledger.
func (s *Service) ForceCleanupAll(reason core.EndReason) {
	for _, slot := range s.smoothed.Keys() {
		s.ForceCleanup(slot, reason)
	}
	for _, slot := range s.snapped.Keys() {
		s.ForceCleanup(slot, reason)
	}
	if s.deps.Ledger != nil {
		s.releaseLoadouts()
		s.deps.Ledger.Clear()
	}
}

// releaseLoadouts unblocks pickups for owners of entries no session holds
// any more, e.g. players that died while stripped.
func (s *Service) releaseLoadouts() {
	for _, slot := range s.deps.Ledger.Slots() {
		p, ok := s.deps.Players.PlayerBySlot(slot)
		if !ok || p == nil || !p.Valid() {
			s.deps.Ledger.Forget(slot)
			continue
		}
		if err := s.deps.Ledger.Release(p); err != nil {
			s.log.Warn("failed to release loadout", "player", p.Key(), "error", err)
		}
	}
}

// Shutdown ends every session when the plugin unloads and detaches the
// metrics callback.
func (s *Service) Shutdown() {
	s.ForceCleanupAll(core.EndUnload)
	if err := s.metrics.unregister(); err != nil {
		s.log.Warn("failed to unregister camera metrics", "error", err)
	}
}

// Tick moves every camera to its player's current pose. Sessions whose
// player, connection or entity is gone are cleaned up.
func (s *Service) Tick() {
	s.tickPool(s.smoothed, core.Smoothed)
	s.tickPool(s.snapped, core.Snapped)
}

func (s *Service) tickPool(pool *cache.Pool[core.Slot, *Session], mode core.Mode) {
	for _, slot := range pool.Keys() {
		sess, ok := pool.Get(slot)
		if !ok {
			continue
		}

		p, ok := s.deps.Players.PlayerBySlot(slot)
		if !ok || p == nil || !p.Valid() || p.Key() != sess.Owner ||
			sess.Entity == nil || !sess.Entity.Valid() {
			s.ForceCleanup(slot, core.EndInvalid)
			continue
		}

		pose, ok := s.deps.Placer.Compute(p)
		if !ok {
			continue
		}

		pos := pose.Position
		if mode == core.Smoothed {
			pos = s.deps.Smoother.Step(sess.Entity.Origin(), pose.Position)
		}
		if err := sess.Entity.Teleport(pos, pose.Angle); err != nil {
			s.log.Debug("camera teleport failed", "player", sess.Owner, "error", err)
		}
	}
}

// HasSession reports whether slot has a session in either pool.
func (s *Service) HasSession(slot core.Slot) bool {
	return s.snapped.Has(slot) || s.smoothed.Has(slot)
}

// IsActive reports whether p itself, not an earlier occupant of its slot,
// has a session.
func (s *Service) IsActive(p host.Player) bool {
	if p == nil {
		return false
	}
	sess, ok := s.session(p.Slot())
	return ok && sess.Owner == p.Key()
}

// Session returns a copy of slot's session.
func (s *Service) Session(slot core.Slot) (Session, bool) {
	sess, ok := s.session(slot)
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Counts returns the number of snapped and smoothed sessions.
func (s *Service) Counts() (snapped, smoothed int) {
	return s.snapped.Len(), s.smoothed.Len()
}

func (s *Service) nextMode() core.Mode {
	if s.settings.UseSmoothed {
		return core.Smoothed
	}
	return core.Snapped
}

func (s *Service) pool(mode core.Mode) *cache.Pool[core.Slot, *Session] {
	if mode == core.Smoothed {
		return s.smoothed
	}
	return s.snapped
}

func (s *Service) session(slot core.Slot) (*Session, bool) {
	if sess, ok := s.smoothed.Get(slot); ok {
		return sess, true
	}
	return s.snapped.Get(slot)
}

func (s *Service) take(slot core.Slot) (*Session, bool) {
	if sess, ok := s.smoothed.Take(slot); ok {
		return sess, true
	}
	return s.snapped.Take(slot)
}

func (s *Service) despawn(ent host.Entity, owner core.PlayerKey) {
	if ent == nil || !ent.Valid() {
		return
	}
	if err := ent.Despawn(); err != nil {
		s.log.Warn("failed to despawn camera entity", "player", owner, "error", err)
	}
}

func (s *Service) restoreLoadout(p host.Player) {
	if !s.settings.StripOnUse || s.deps.Ledger == nil {
		return
	}
	err := s.deps.Ledger.Restore(p)
	switch {
	case err == nil:
	case errors.Is(err, loadout.ErrStaleEntry):
		s.log.Debug("dropped loadout of previous slot owner", "player", p.Key())
	default:
		s.log.Warn("failed to restore weapons", "player", p.Key(), "error", err)
	}
}

func (s *Service) dropLoadout(slot core.Slot) {
	if s.deps.Ledger != nil {
		s.deps.Ledger.Forget(slot)
	}
}

func (s *Service) finish(sess *Session, reason core.EndReason) {
	s.metrics.ended(sess.Mode, reason)
	s.log.Info("camera deactivated", "player", sess.Owner, "mode", sess.Mode, "reason", reason)

	if s.deps.Journal == nil {
		return
	}
	rec := core.SessionRecord{
		Player:    sess.Owner,
		SteamID:   sess.SteamID,
		Mode:      sess.Mode,
		Round:     sess.Round,
		StartedAt: sess.StartedAt,
		EndedAt:   s.deps.Clock(),
		Reason:    reason,
		Loadout:   sess.Loadout,
	}
	if err := s.deps.Journal.RecordSession(rec); err != nil {
		s.log.Warn("failed to journal camera session", "player", sess.Owner, "error", err)
	}
}

func entityName(mode core.Mode) string {
	if mode == core.Smoothed {
		return SmoothedEntity
	}
	return SnappedEntity
}

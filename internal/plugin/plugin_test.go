package plugin

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThirdPersonSW2/extension/internal/camera"
	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/database"
	"github.com/ThirdPersonSW2/extension/internal/handlers"
	"github.com/ThirdPersonSW2/extension/internal/model"
	"github.com/ThirdPersonSW2/extension/internal/sandbox"
	"github.com/ThirdPersonSW2/extension/internal/storage"
	"github.com/ThirdPersonSW2/extension/internal/storage/memory"
	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
)

var testStart = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

func pluginConfig() config.PluginConfig {
	return config.PluginConfig{
		CustomTPCommand:     "tp",
		OnlyAdminFlag:       "@css/slay",
		BlockCamera:         true,
		ThirdPersonDistance: 110,
		ThirdPersonHeight:   76,
	}
}

func smoothing() config.SmoothingConfig {
	return config.SmoothingConfig{Mode: "fixed", Factor: 0.3, ReferenceTickRate: 64, TickRate: 64}
}

type env struct {
	world   *sandbox.World
	plugin  *Plugin
	journal *memory.Backend
}

func newEnv(t *testing.T, pc config.PluginConfig) *env {
	t.Helper()

	w := sandbox.NewWorld(nil)
	j := memory.New(0)
	p := New(w, Options{
		Plugin:    pc,
		Smoothing: smoothing(),
		Journal:   j,
		Clock:     func() time.Time { return testStart },
	})
	require.NoError(t, p.Load())
	w.SetSink(p)
	t.Cleanup(func() { p.Unload() })

	return &env{world: w, plugin: p, journal: j}
}

func (e *env) toggle(t *testing.T, slot core.Slot) string {
	t.Helper()
	res, err := e.world.Command(slot, handlers.BaseCommand)
	require.NoError(t, err)
	if res == nil {
		return ""
	}
	return res.(string)
}

func (e *env) cameraOf(t *testing.T, slot core.Slot) *sandbox.Entity {
	t.Helper()
	view, ok := e.world.View(slot)
	require.True(t, ok, "slot %d has no camera view", slot)
	return view
}

func assertNear(t *testing.T, want, got geo.Vector) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-3, "component %d of %v", i, got)
	}
}

func TestLoad_RegistersCommandsAndEvents(t *testing.T) {
	e := newEnv(t, pluginConfig())

	assert.Equal(t, []string{"sw_thirdperson", "sw_tp"}, e.world.Commands())
	assert.ElementsMatch(t, []string{
		"sw_thirdperson", "sw_tp",
		core.EventTick, core.EventRoundStart, core.EventPlayerDeath,
		core.EventPlayerDisconnect, core.EventPlayerHurt,
	}, e.plugin.Events())
	assert.True(t, e.plugin.Loaded())
	assert.Error(t, e.plugin.Load())
}

func TestLoad_RejectsBadSmoothing(t *testing.T) {
	p := New(sandbox.NewWorld(nil), Options{
		Plugin:    pluginConfig(),
		Smoothing: config.SmoothingConfig{Mode: "fixed", Factor: 0},
	})
	assert.ErrorContains(t, p.Load(), "smoothing")
	assert.False(t, p.Loaded())
}

func TestDispatch_BeforeLoad(t *testing.T) {
	p := New(sandbox.NewWorld(nil), Options{Plugin: pluginConfig(), Smoothing: smoothing()})
	_, err := p.Dispatch(core.EventTick, core.TickEvent{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.NoError(t, p.Unload())
}

func TestToggle_SnappedCameraFollowsPlayer(t *testing.T) {
	e := newEnv(t, pluginConfig())
	p := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgActivated, e.toggle(t, p.Slot()))
	cam := e.cameraOf(t, p.Slot())
	assert.Equal(t, camera.SnappedEntity, cam.DesignerName)

	require.NoError(t, e.world.Tick(1))
	assertNear(t, geo.Vector{-110, 0, 76}, cam.Origin())

	require.NoError(t, e.world.Move(p.Slot(), geo.Vector{500, 0, 0}, 90))
	require.NoError(t, e.world.Tick(1))
	assertNear(t, geo.Vector{500, -110, 76}, cam.Origin())
	assert.Equal(t, float32(90), cam.Angle().Yaw)

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgDeactivated, e.toggle(t, p.Slot()))
	_, ok := e.world.View(p.Slot())
	assert.False(t, ok)
	assert.Empty(t, e.world.LiveEntities())

	sessions, err := e.journal.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, core.EndToggle, sessions[0].Reason)
	assert.Equal(t, p.Key(), sessions[0].Player)
}

func TestToggle_AliasCommand(t *testing.T) {
	e := newEnv(t, pluginConfig())
	p := e.world.Connect("alice", 1, geo.Vector{}, 0)

	res, err := e.world.Command(p.Slot(), "sw_tp")
	require.NoError(t, err)
	assert.Equal(t, handlers.ChatPrefix+handlers.MsgActivated, res)
}

func TestWallPullsCameraIn(t *testing.T) {
	e := newEnv(t, pluginConfig())
	e.world.AddWall(geo.Vector{-60, -100, 0}, geo.Vector{-50, 100, 0})
	p := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)

	e.toggle(t, p.Slot())
	require.NoError(t, e.world.Tick(1))

	x := e.cameraOf(t, p.Slot()).Origin()[0]
	assert.Greater(t, x, float32(-50), "camera stays in front of the wall")
	assert.Less(t, x, float32(-35))
}

func TestOtherPlayerPullsCameraIn(t *testing.T) {
	e := newEnv(t, pluginConfig())
	p := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)
	e.world.Connect("bob", 2, geo.Vector{-80, 0, 0}, 0)

	e.toggle(t, p.Slot())
	require.NoError(t, e.world.Tick(1))

	x := e.cameraOf(t, p.Slot()).Origin()[0]
	assert.Greater(t, x, float32(-80+sandbox.PawnRadius))
}

func TestSmoothedCameraWithStrip(t *testing.T) {
	pc := pluginConfig()
	pc.UseSmoothCam = true
	pc.StripOnUse = true
	e := newEnv(t, pc)

	p := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)
	require.NoError(t, e.world.Give(p.Slot(), "weapon_knife", "weapon_ak47", "weapon_flashbang", "weapon_flashbang"))

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgSmoothActivated, e.toggle(t, p.Slot()))
	assert.Empty(t, e.world.Items(p.Slot()))
	assert.True(t, p.PreventPickup())
	cam := e.cameraOf(t, p.Slot())
	assert.Equal(t, camera.SmoothedEntity, cam.DesignerName)

	require.NoError(t, e.world.Move(p.Slot(), geo.Vector{100, 0, 0}, 0))
	require.NoError(t, e.world.Tick(1))
	// eases 30% of the way from -110 toward -10
	assert.InDelta(t, -80, cam.Origin()[0], 1e-3)

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgSmoothDeactivated, e.toggle(t, p.Slot()))
	assert.Equal(t, []string{"weapon_knife", "weapon_ak47", "weapon_flashbang", "weapon_flashbang"}, e.world.Items(p.Slot()))
	assert.False(t, p.PreventPickup())

	sessions, _ := e.journal.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, core.Smoothed, sessions[0].Mode)
	assert.Equal(t, []core.LoadoutItem{
		{Name: "weapon_knife", Count: 1},
		{Name: "weapon_ak47", Count: 1},
		{Name: "weapon_flashbang", Count: 2},
	}, sessions[0].Loadout)
}

func TestRoundStartEndsEverySession(t *testing.T) {
	pc := pluginConfig()
	pc.StripOnUse = true
	e := newEnv(t, pc)

	a := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)
	b := e.world.Connect("bob", 2, geo.Vector{300, 0, 0}, 0)
	require.NoError(t, e.world.Give(a.Slot(), "weapon_glock"))
	e.toggle(t, a.Slot())
	e.toggle(t, b.Slot())

	require.NoError(t, e.world.StartRound())

	assert.Equal(t, uint(1), e.plugin.Round().Number())
	assert.Empty(t, e.world.LiveEntities())
	assert.Equal(t, []string{"weapon_glock"}, e.world.Items(a.Slot()))
	assert.Zero(t, e.plugin.Ledger().Len())

	sessions, _ := e.journal.Sessions()
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.Equal(t, core.EndRoundStart, s.Reason)
		assert.Equal(t, uint(0), s.Round)
	}

	e.toggle(t, a.Slot())
	sess, ok := e.plugin.Camera().Session(a.Slot())
	require.True(t, ok)
	assert.Equal(t, uint(1), sess.Round)
}

func TestDeathKeepsLoadoutUntilRoundStart(t *testing.T) {
	// a new round hands out fresh loadouts, so the held entry is dropped
	pc := pluginConfig()
	pc.StripOnUse = true
	e := newEnv(t, pc)

	p := e.world.Connect("alice", 1, geo.Vector{}, 0)
	require.NoError(t, e.world.Give(p.Slot(), "weapon_deagle"))
	e.toggle(t, p.Slot())

	require.NoError(t, e.world.Kill(p.Slot(), core.NoSlot))

	assert.False(t, e.plugin.Camera().HasSession(p.Slot()))
	assert.True(t, e.plugin.Ledger().Has(p.Slot()), "dead pawn has no inventory to restore into")
	assert.True(t, p.PreventPickup())

	require.NoError(t, e.world.Respawn(p.Slot(), geo.Vector{}, 0))
	require.NoError(t, e.world.StartRound())
	assert.Zero(t, e.plugin.Ledger().Len())
	assert.Empty(t, e.world.Items(p.Slot()))
	assert.False(t, p.PreventPickup(), "pickups are allowed again in the new round")

	sessions, _ := e.journal.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, core.EndDeath, sessions[0].Reason)
}

func TestHurtDoublesDamageWhileFacingVictim(t *testing.T) {
	e := newEnv(t, pluginConfig())
	attacker := e.world.Connect("alice", 1, geo.Vector{0, 0, 0}, 0)
	victim := e.world.Connect("bob", 2, geo.Vector{200, 0, 0}, 180)

	hp, ar, err := e.world.Damage(attacker.Slot(), victim.Slot(), 20, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 5}, []int{hp, ar}, "first person deals normal damage")

	e.toggle(t, attacker.Slot())
	hp, ar, err = e.world.Damage(attacker.Slot(), victim.Slot(), 20, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{40, 10}, []int{hp, ar})

	require.NoError(t, e.world.Move(attacker.Slot(), geo.Vector{0, 0, 0}, 180))
	hp, _, err = e.world.Damage(attacker.Slot(), victim.Slot(), 20, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, hp, "victim behind the attacker")

	assert.Equal(t, sandbox.SpawnHealth-80, victim.Body().Health)
}

func TestDisconnectAndSlotReuse(t *testing.T) {
	e := newEnv(t, pluginConfig())
	old := e.world.Connect("alice", 1, geo.Vector{}, 0)
	e.toggle(t, old.Slot())

	require.NoError(t, e.world.Disconnect(old.Slot()))
	assert.False(t, e.plugin.Camera().HasSession(old.Slot()))
	assert.Empty(t, e.world.LiveEntities())

	next := e.world.Connect("bob", 2, geo.Vector{}, 0)
	require.Equal(t, old.Slot(), next.Slot())
	assert.False(t, e.plugin.Camera().IsActive(next))

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgActivated, e.toggle(t, next.Slot()))

	sessions, _ := e.journal.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, core.EndDisconnect, sessions[0].Reason)
	assert.Equal(t, old.Key(), sessions[0].Player)
}

func TestAdminOnly(t *testing.T) {
	pc := pluginConfig()
	pc.UseOnlyAdmin = true
	e := newEnv(t, pc)
	p := e.world.Connect("alice", 76561198000000001, geo.Vector{}, 0)

	assert.Equal(t, handlers.ChatPrefix+handlers.MsgNoPermission, e.toggle(t, p.Slot()))
	assert.False(t, e.plugin.Camera().HasSession(p.Slot()))

	e.world.Grant(p.SteamID(), "@css/slay")
	assert.Equal(t, handlers.ChatPrefix+handlers.MsgActivated, e.toggle(t, p.Slot()))
}

func TestDeadCallerIsIgnored(t *testing.T) {
	e := newEnv(t, pluginConfig())
	p := e.world.Connect("alice", 1, geo.Vector{}, 0)
	require.NoError(t, e.world.Kill(p.Slot(), core.NoSlot))

	assert.Empty(t, e.toggle(t, p.Slot()))
	assert.Empty(t, p.Messages())
}

func TestUnloadEndsSessions(t *testing.T) {
	e := newEnv(t, pluginConfig())
	p := e.world.Connect("alice", 1, geo.Vector{}, 0)
	e.toggle(t, p.Slot())

	require.NoError(t, e.plugin.Unload())
	assert.False(t, e.plugin.Loaded())
	assert.Empty(t, e.world.LiveEntities())

	sessions, _ := e.journal.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, core.EndUnload, sessions[0].Reason)

	_, err := e.world.Command(p.Slot(), handlers.BaseCommand)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSqliteJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	journal, err := storage.NewBackend(config.StorageConfig{
		Type:          "sqlite",
		FlushInterval: time.Hour,
		SQLite:        config.SQLiteConfig{Path: path},
	}, zerolog.Nop())
	require.NoError(t, err)

	w := sandbox.NewWorld(nil)
	p := New(w, Options{Plugin: pluginConfig(), Smoothing: smoothing(), Journal: journal})
	require.NoError(t, p.Load())
	w.SetSink(p)

	alice := w.Connect("alice", 1, geo.Vector{}, 0)
	_, err = w.Command(alice.Slot(), handlers.BaseCommand)
	require.NoError(t, err)
	require.NoError(t, w.Tick(2))
	_, err = w.Command(alice.Slot(), handlers.BaseCommand)
	require.NoError(t, err)

	require.NoError(t, p.Unload())

	db, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var rows []model.CameraSession
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "toggle", rows[0].Reason)
	assert.Equal(t, "snapped", rows[0].Mode)
}

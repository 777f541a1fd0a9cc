package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/dispatcher"
	"github.com/ThirdPersonSW2/extension/internal/handlers"
	"github.com/ThirdPersonSW2/extension/internal/plugin"
	"github.com/ThirdPersonSW2/extension/internal/round"
	"github.com/ThirdPersonSW2/extension/internal/sandbox"
	"github.com/ThirdPersonSW2/extension/internal/storage"
	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
)

type demoOptions struct {
	Plugin    config.PluginConfig
	Smoothing config.SmoothingConfig
	Journal   storage.Backend
	Ticks     int
	Logger    *slog.Logger
	Events    dispatcher.Logger
	Round     *round.Context
}

// demoReport summarizes a demo run.
type demoReport struct {
	Chat        []string
	CameraPath  []geo.Vector
	DamageDealt [2]int
	Round       uint
	Sessions    []core.SessionRecord
}

// Print writes the report in a human readable form.
func (r demoReport) Print(w io.Writer) {
	fmt.Fprintln(w, "chat:")
	for _, msg := range r.Chat {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	if n := len(r.CameraPath); n > 0 {
		fmt.Fprintf(w, "camera: %d frames, first %v, last %v\n", n, r.CameraPath[0], r.CameraPath[n-1])
	}
	fmt.Fprintf(w, "damage while in third person: %d health, %d armor\n", r.DamageDealt[0], r.DamageDealt[1])
	fmt.Fprintf(w, "round: %d\n", r.Round)
	fmt.Fprintf(w, "sessions: %d\n", len(r.Sessions))
	for _, s := range r.Sessions {
		fmt.Fprintf(w, "  %s %s %s\n", s.Player, s.Mode, s.Reason)
	}
}

// runDemo plays a short match: a player walks along a corridor in third
// person, shoots another player, a round restarts and someone leaves.
func runDemo(opts demoOptions) (demoReport, error) {
	var report demoReport
	if opts.Ticks <= 0 {
		opts.Ticks = 1
	}

	world := sandbox.NewWorld(opts.Logger)
	// corridor along +X with a pillar halfway
	world.AddWall(geo.Vector{-400, 96, 0}, geo.Vector{1200, 112, 0})
	world.AddWall(geo.Vector{-400, -112, 0}, geo.Vector{1200, -96, 0})
	world.AddWall(geo.Vector{-200, -96, 0}, geo.Vector{-180, 96, 0})

	p := plugin.New(world, plugin.Options{
		Plugin:      opts.Plugin,
		Smoothing:   opts.Smoothing,
		Logger:      opts.Logger,
		EventLogger: opts.Events,
		Journal:     opts.Journal,
		Round:       opts.Round,
	})
	if err := p.Load(); err != nil {
		return report, err
	}
	world.SetSink(p)

	alice := world.Connect("alice", 76561198000000001, geo.Vector{0, 0, 0}, 0)
	bob := world.Connect("bob", 76561198000000002, geo.Vector{800, 0, 0}, 180)
	carol := world.Connect("carol", 76561198000000003, geo.Vector{-100, 50, 0}, 90)
	if opts.Plugin.UseOnlyAdmin {
		world.Grant(alice.SteamID(), opts.Plugin.OnlyAdminFlag)
	}
	if err := world.Give(alice.Slot(), "weapon_knife", "weapon_ak47", "weapon_smokegrenade"); err != nil {
		return report, err
	}

	var errs []error
	step := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	command := func(pl *sandbox.Player, name string) {
		_, err := world.Command(pl.Slot(), name)
		step(err)
	}

	command(alice, handlers.BaseCommand)
	for i := 0; i < opts.Ticks; i++ {
		step(world.Move(alice.Slot(), geo.Vector{float32(i) * 2, 0, 0}, 0))
		step(world.Tick(1))
		if view, ok := world.View(alice.Slot()); ok {
			report.CameraPath = append(report.CameraPath, view.Origin())
		}
	}

	hp, armor, err := world.Damage(alice.Slot(), bob.Slot(), 25, 10)
	step(err)
	report.DamageDealt = [2]int{hp, armor}

	alias := "sw_" + opts.Plugin.CustomTPCommand
	if opts.Plugin.CustomTPCommand == "" || opts.Plugin.CustomTPCommand == "thirdperson" {
		alias = handlers.BaseCommand
	}
	command(carol, alias)
	step(world.Tick(4))

	step(world.StartRound())
	command(bob, handlers.BaseCommand)
	step(world.Tick(4))
	step(world.Disconnect(bob.Slot()))

	command(alice, handlers.BaseCommand)
	step(world.Tick(2))
	command(alice, handlers.BaseCommand)

	report.Round = p.Round().Number()
	for _, pl := range []*sandbox.Player{alice, bob, carol} {
		report.Chat = append(report.Chat, prefixed(pl.Name(), pl.Messages())...)
	}

	// end the remaining sessions so the journal holds the whole match
	p.Camera().Shutdown()
	if f, ok := opts.Journal.(interface{ Flush() error }); ok {
		step(f.Flush())
	}
	if lister, ok := opts.Journal.(storage.Lister); ok {
		sessions, err := lister.Sessions()
		step(err)
		report.Sessions = sessions
	}
	step(p.Unload())

	return report, errors.Join(errs...)
}

func prefixed(name string, msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = name + ":" + m
	}
	return out
}

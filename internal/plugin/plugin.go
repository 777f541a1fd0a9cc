// Package plugin assembles the camera extension on top of a host: it
// builds every service, registers commands and routes host events.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThirdPersonSW2/extension/internal/camera"
	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/dispatcher"
	"github.com/ThirdPersonSW2/extension/internal/handlers"
	"github.com/ThirdPersonSW2/extension/internal/loadout"
	"github.com/ThirdPersonSW2/extension/internal/placement"
	"github.com/ThirdPersonSW2/extension/internal/round"
	"github.com/ThirdPersonSW2/extension/internal/storage"
	"github.com/ThirdPersonSW2/extension/internal/storage/memory"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

// ErrNotLoaded is returned by Dispatch before Load or after Unload.
var ErrNotLoaded = errors.New("plugin not loaded")

// Options configure a Plugin. Only Plugin and Smoothing are required.
type Options struct {
	Plugin    config.PluginConfig
	Smoothing config.SmoothingConfig

	Logger *slog.Logger
	// EventLogger logs dispatched events; nil disables event logging.
	EventLogger dispatcher.Logger
	// Journal receives finished sessions. Defaults to an in-memory journal.
	// The plugin calls Init on Load and Close on Unload.
	Journal storage.Backend
	// Round is shared with the log context provider when set.
	Round *round.Context
	Clock func() time.Time
}

// Plugin is the loaded extension.
type Plugin struct {
	host host.Host
	opts Options
	log  *slog.Logger

	dispatcher *dispatcher.Dispatcher
	ledger     *loadout.Ledger
	camera     *camera.Service
	handlers   *handlers.Service
	loaded     bool
}

// New prepares a plugin for h. Nothing is registered until Load.
func New(h host.Host, opts Options) *Plugin {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EventLogger == nil {
		opts.EventLogger = nopLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Round == nil {
		opts.Round = round.NewContext(opts.Clock())
	}
	if opts.Journal == nil {
		opts.Journal = memory.New(0)
	}
	return &Plugin{
		host: h,
		opts: opts,
		log:  opts.Logger.With("component", "plugin"),
	}
}

// Load builds the services, opens the journal and registers the commands
// with the host.
func (p *Plugin) Load() error {
	if p.loaded {
		return errors.New("plugin already loaded")
	}

	smoother, err := placement.NewSmoother(
		p.opts.Smoothing.Mode,
		p.opts.Smoothing.Factor,
		p.opts.Smoothing.ReferenceTickRate,
		p.opts.Smoothing.TickRate,
	)
	if err != nil {
		return fmt.Errorf("smoothing: %w", err)
	}

	p.ledger, err = loadout.New(p.host)
	if err != nil {
		return err
	}

	if err := p.opts.Journal.Init(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	pc := p.opts.Plugin
	placer := placement.New(p.host, placement.Options{
		Distance:    pc.ThirdPersonDistance,
		Height:      pc.ThirdPersonHeight,
		BlockCamera: pc.BlockCamera,
	}, p.opts.Logger)

	p.camera, err = camera.New(camera.Dependencies{
		Players:  p.host,
		Entities: p.host,
		Placer:   placer,
		Smoother: smoother,
		Ledger:   p.ledger,
		Journal:  p.opts.Journal,
		Round:    p.opts.Round,
		Logger:   p.opts.Logger,
		Clock:    p.opts.Clock,
	}, camera.Settings{
		UseSmoothed: pc.UseSmoothCam,
		StripOnUse:  pc.StripOnUse,
	})
	if err != nil {
		return errors.Join(err, p.opts.Journal.Close())
	}

	p.handlers = handlers.NewService(handlers.Dependencies{
		Players:     p.host,
		Permissions: p.host,
		Camera:      p.camera,
		Round:       p.opts.Round,
		Logger:      p.opts.Logger,
		Clock:       p.opts.Clock,
	}, handlers.Settings{
		CommandAlias: pc.CustomTPCommand,
		AdminOnly:    pc.UseOnlyAdmin,
		AdminFlag:    pc.OnlyAdminFlag,
	})

	p.dispatcher, err = dispatcher.New(p.opts.EventLogger)
	if err != nil {
		return errors.Join(err, p.opts.Journal.Close())
	}
	p.handlers.Register(p.dispatcher)

	for _, cmd := range p.handlers.Commands() {
		if err := p.host.RegisterCommand(cmd); err != nil {
			return errors.Join(fmt.Errorf("registering %s: %w", cmd, err), p.opts.Journal.Close())
		}
	}

	p.loaded = true
	p.log.Info("plugin loaded",
		"commands", p.handlers.Commands(),
		"smooth", pc.UseSmoothCam,
		"stripOnUse", pc.StripOnUse,
		"adminOnly", pc.UseOnlyAdmin,
	)
	return nil
}

// Dispatch routes a host event to its handler.
func (p *Plugin) Dispatch(name string, payload any) (any, error) {
	if !p.loaded {
		return nil, ErrNotLoaded
	}
	return p.dispatcher.Dispatch(dispatcher.Event{
		Name:      name,
		Payload:   payload,
		Timestamp: p.opts.Clock(),
	})
}

// Unload ends every camera session and closes the journal.
func (p *Plugin) Unload() error {
	if !p.loaded {
		return nil
	}
	p.loaded = false
	p.camera.Shutdown()

	if err := p.opts.Journal.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	p.log.Info("plugin unloaded")
	return nil
}

// Loaded reports whether Load succeeded and Unload was not called.
func (p *Plugin) Loaded() bool { return p.loaded }

// Camera returns the camera service. Nil before Load.
func (p *Plugin) Camera() *camera.Service { return p.camera }

// Ledger returns the loadout ledger. Nil before Load.
func (p *Plugin) Ledger() *loadout.Ledger { return p.ledger }

// Round returns the round context.
func (p *Plugin) Round() *round.Context { return p.opts.Round }

// Journal returns the session journal.
func (p *Plugin) Journal() storage.Backend { return p.opts.Journal }

// Events returns the names the plugin handles.
func (p *Plugin) Events() []string {
	if p.dispatcher == nil {
		return nil
	}
	return p.dispatcher.Names()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

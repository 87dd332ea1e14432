package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rtxops/rtxctl/pkg/config"
	"github.com/rtxops/rtxctl/pkg/engine"
	"github.com/rtxops/rtxctl/pkg/policy"
	"github.com/rtxops/rtxctl/pkg/stores"
	"github.com/rtxops/rtxctl/pkg/telemetry"
	"github.com/rtxops/rtxctl/pkg/transports/ssh"
)

// app holds what every device command needs: configuration, telemetry,
// history store and policy engine.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	store  *stores.SQLiteStore
	policy *policy.Engine
}

// setup loads configuration and opens the shared services.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		zerolog.SetGlobalLevel(level)
		cfg.Telemetry.Logging.Level = level.String()
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log.Logger = tel.Logger.Zerolog()
	tel.StartMetricsServer()

	a := &app{cfg: cfg, tel: tel}

	if !cfg.Store.Disabled {
		store, err := stores.Open(ctx, stores.Config{Path: cfg.Store.Path})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.store = store
	}

	if cfg.Policy.Enabled {
		pe, err := newPolicyEngine(ctx, cfg, tel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.policy = pe
	}

	return a, nil
}

func newPolicyEngine(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (*policy.Engine, error) {
	pe, err := policy.NewEngine(
		tel.Logger.NewComponentLogger("policy").Zerolog(),
		policy.WithParams(cfg.Policy.Params()),
		policy.WithEnvironment(cfg.Policy.Environment),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	if len(cfg.Policy.Paths) > 0 {
		if err := pe.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	for _, rule := range cfg.Policy.Rules {
		if err := pe.AddPolicy(ctx, rule.Policy()); err != nil {
			return nil, fmt.Errorf("failed to compile policy %s: %w", rule.Name, err)
		}
	}
	for _, name := range cfg.Policy.Disabled {
		if err := pe.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return pe, nil
}

// Close releases the store and flushes telemetry.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history store")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// engineOptions returns the options shared by every device engine.
func (a *app) engineOptions(host string) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(a.tel.Logger.WithField("device", host)),
		engine.WithMetrics(a.tel.Metrics),
		engine.WithTracer(a.tel.Tracer),
		engine.WithEvents(a.tel.Events),
	}
	if a.store != nil {
		opts = append(opts, engine.WithRecorder(a.store))
	}
	if a.policy != nil {
		opts = append(opts, engine.WithPolicy(a.policy))
	}
	return opts
}

// sessionFactory connects to inventory devices over SSH.
func (a *app) sessionFactory(devices map[string]config.Device) engine.SessionFactory {
	return func(ctx context.Context, name string) (*engine.Engine, func() error, error) {
		device, ok := devices[name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown device %q", name)
		}

		sshCfg, err := device.SSHConfig()
		if err != nil {
			return nil, nil, err
		}
		client, err := ssh.NewSSHClient(sshCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		if err := client.HealthCheck(ctx); err != nil {
			_ = client.Disconnect()
			return nil, nil, fmt.Errorf("device %s is not responding: %w", name, err)
		}
		a.tel.Metrics.SessionOpened()

		info := client.GetConnectionInfo()
		log.Debug().
			Str("device", name).
			Str("host", info.Host).
			Int("port", info.Port).
			Str("user", info.User).
			Bool("administrator", info.Administrator).
			Time("connected_at", info.ConnectedAt).
			Msg("Session ready")

		closeFn := func() error {
			a.tel.Metrics.SessionClosed()
			return client.Close()
		}
		return engine.New(client, a.engineOptions(name)...), closeFn, nil
	}
}

// runFleet selects the target devices and runs fn against each of them.
// The returned error reports how many devices failed.
func (a *app) runFleet(ctx context.Context, fn engine.FleetFunc) ([]engine.FleetResult, error) {
	devices, err := a.cfg.Select(hosts, groups)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.New("no devices selected; add devices to the config or pass --host")
	}

	byName := make(map[string]config.Device, len(devices))
	for _, d := range devices {
		byName[d.Name] = d
	}

	maxParallel := parallel
	if maxParallel <= 0 {
		maxParallel = a.cfg.Fleet.MaxParallel
	}

	log.Debug().
		Strs("devices", config.Names(devices)).
		Int("parallel", maxParallel).
		Msg("Running against devices")

	fleet := engine.NewFleet(maxParallel, a.sessionFactory(byName))
	results := fleet.Run(ctx, config.Names(devices), fn)

	if failed := engine.Failed(results); len(failed) > 0 {
		return results, fmt.Errorf("%d of %d devices failed", len(failed), len(results))
	}
	return results, nil
}

// withApp wraps a command body with setup and teardown.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

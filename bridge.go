package ledgerbridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/engine/guest"
	"github.com/wippyai/ledger-bridge/engine/sim"
	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/ledger"
	"github.com/wippyai/ledger-bridge/metrics"
	"github.com/wippyai/ledger-bridge/registry"
)

// EngineKind selects the engine a Bridge drives.
type EngineKind string

const (
	// EngineSim is the in-process simulated engine backed by the ledger
	// simulator.
	EngineSim EngineKind = "sim"
	// EngineGuest is a WebAssembly guest engine.
	EngineGuest EngineKind = "wasm"
)

// Config holds configuration for a Bridge.
type Config struct {
	// Engine selects the engine. Empty means EngineSim.
	Engine EngineKind

	// GuestModule is the compiled guest for EngineGuest.
	// nil means the built-in echo guest.
	GuestModule []byte

	// Guest configures the guest engine.
	Guest *guest.Config

	// Sim configures the simulated engine. A nil Responder is replaced by
	// the ledger simulator.
	Sim *sim.Config

	// Simulator configures the ledger simulator behind EngineSim.
	Simulator *ledger.SimulatorConfig

	// Registry configures the pending-call registry. A positive MaxAge
	// starts a background reaper.
	Registry *registry.Config

	// Metrics, when set, receives a collector for registry activity.
	Metrics prometheus.Registerer

	// Namespace prefixes metric names. Empty means "ledger".
	Namespace string
}

// Bridge wires a registry, an engine and a ledger client together.
type Bridge struct {
	reg       *registry.Registry
	eng       engine.Engine
	client    *ledger.Client
	collector *metrics.Collector
	metrics   prometheus.Registerer
	stop      context.CancelFunc
	reaped    chan struct{}
	log       *zap.Logger
	id        uuid.UUID
	closeOnce sync.Once
	closeErr  error
}

// New creates a Bridge. cfg may be nil.
func New(ctx context.Context, cfg *Config) (*Bridge, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	b := &Bridge{
		id:     uuid.New(),
		reg:    registry.NewWithConfig(cfg.Registry),
		reaped: make(chan struct{}),
	}
	b.log = Logger().With(zap.String("bridge", b.id.String()))

	eng, err := newEngine(ctx, cfg, engine.RegistrySink(b.reg))
	if err != nil {
		b.reg.Close()
		return nil, err
	}
	b.eng = eng
	b.client = ledger.NewClient(b.reg, eng)

	if cfg.Metrics != nil {
		ns := cfg.Namespace
		if ns == "" {
			ns = "ledger"
		}
		c := metrics.NewCollector(b.reg, ns)
		if err := cfg.Metrics.Register(c); err != nil {
			c.Close()
			b.reg.Close()
			_ = eng.Close(ctx)
			return nil, errors.Wrap(errors.PhaseLifecycle, errors.KindInvalidInput, err, "register metrics")
		}
		b.collector = c
		b.metrics = cfg.Metrics
	}

	runCtx, stop := context.WithCancel(context.Background())
	b.stop = stop
	go func() {
		defer close(b.reaped)
		_ = b.reg.Run(runCtx)
	}()

	engineKind := cfg.Engine
	if engineKind == "" {
		engineKind = EngineSim
	}
	b.log.Info("bridge started", zap.String("engine", string(engineKind)))
	return b, nil
}

func newEngine(ctx context.Context, cfg *Config, sink engine.Sink) (engine.Engine, error) {
	switch cfg.Engine {
	case "", EngineSim:
		var sc sim.Config
		if cfg.Sim != nil {
			sc = *cfg.Sim
		}
		if sc.Responder == nil {
			sc.Responder = ledger.NewSimulatorWithConfig(cfg.Simulator).Respond
		}
		return sim.NewWithConfig(sink, &sc), nil

	case EngineGuest:
		module := cfg.GuestModule
		if module == nil {
			module = guest.EchoModule()
		}
		return guest.NewWithConfig(ctx, module, sink, cfg.Guest)
	}
	return nil, errors.New(errors.PhaseLifecycle, errors.KindInvalidInput).
		Value(cfg.Engine).
		Detail("unknown engine %q", cfg.Engine).
		Build()
}

// ID returns the bridge's session identifier.
func (b *Bridge) ID() string {
	return b.id.String()
}

// Client returns the ledger client.
func (b *Bridge) Client() *ledger.Client {
	return b.client
}

// Registry returns the pending-call registry.
func (b *Bridge) Registry() *registry.Registry {
	return b.reg
}

// Engine returns the underlying engine.
func (b *Bridge) Engine() engine.Engine {
	return b.eng
}

// Close waits for outstanding calls to complete until ctx is done, fails the
// rest as closed, and shuts the engine down. Calls started after Close fail
// with a closed error. Close is idempotent.
func (b *Bridge) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.closeErr = b.close(ctx)
	})
	return b.closeErr
}

func (b *Bridge) close(ctx context.Context) error {
	var errs []error

	if err := b.reg.Drain(ctx); err != nil {
		errs = append(errs, err)
	}
	if failed := b.reg.Close(); failed > 0 {
		b.log.Warn("failed outstanding calls on close", zap.Int("count", failed))
	}

	b.stop()
	<-b.reaped

	if err := b.eng.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close engine: %w", err))
	}

	if b.collector != nil {
		b.metrics.Unregister(b.collector)
		b.collector.Close()
	}

	stats := b.reg.Stats()
	b.log.Info("bridge closed",
		zap.Uint64("completed", stats.Completed),
		zap.Uint64("failed", stats.Failed),
		zap.Uint64("cancelled", stats.Cancelled),
		zap.Uint64("closed", stats.Closed))
	return stderrors.Join(errs...)
}

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ledgerbridge "github.com/wippyai/ledger-bridge"
	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/engine/sim"
	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/ledger"
	"github.com/wippyai/ledger-bridge/registry"
)

// scenario programs the simulated engine and the registry from YAML:
//
//	delay: 20ms
//	workers: 8
//	duplicates: false
//	max_age: 5s
//	capacity: 4096
//	rejections:
//	  build-nym-request: 113
type scenario struct {
	Rejections map[string]int32 `yaml:"rejections"`
	Delay      time.Duration    `yaml:"delay"`
	MaxAge     time.Duration    `yaml:"max_age"`
	Workers    int              `yaml:"workers"`
	QueueSize  int              `yaml:"queue_size"`
	Capacity   int              `yaml:"capacity"`
	Duplicates bool             `yaml:"duplicates"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*scenario, error) {
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

func (sc *scenario) apply(cfg *ledgerbridge.Config) error {
	simCfg := &sim.Config{
		Delay:      sc.Delay,
		Workers:    sc.Workers,
		QueueSize:  sc.QueueSize,
		Duplicates: sc.Duplicates,
	}
	if len(sc.Rejections) > 0 {
		simCfg.Rejections = make(map[engine.OperationID]errors.Code, len(sc.Rejections))
		for name, code := range sc.Rejections {
			op, ok := ledger.Lookup(name)
			if !ok {
				return fmt.Errorf("scenario: unknown operation %q", name)
			}
			if errors.Code(code) == errors.Success {
				return fmt.Errorf("scenario: rejection code for %s must be non-zero", name)
			}
			simCfg.Rejections[op.ID] = errors.Code(code)
		}
	}
	cfg.Sim = simCfg

	if sc.MaxAge > 0 {
		cfg.Registry = &registry.Config{MaxAge: sc.MaxAge}
	}
	if sc.Capacity > 0 {
		cfg.Simulator = &ledger.SimulatorConfig{Capacity: sc.Capacity}
	}
	return nil
}

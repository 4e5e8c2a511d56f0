package main

import (
	"fmt"

	"github.com/bobmatnyc/edgar-sub010/internal/config"
	"github.com/bobmatnyc/edgar-sub010/internal/logging"
	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/pipeline"
	"github.com/bobmatnyc/edgar-sub010/internal/registry"
)

// newService wires a pipeline service from config.
func newService(cfg *config.Config, logger *logging.Logger) (*pipeline.Service, error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := pipeline.NewService(pipeline.Options{
		Registry: reg,
		Detector: patterns.NewDetector(patterns.Options{
			Baseline:      cfg.Detector.Baseline,
			MaxCandidates: cfg.Detector.MaxCandidates,
		}),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init service: %w", err)
	}
	return svc, nil
}

// newRegistry opens the catalog from config.
func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.New(cfg.Registry.CatalogPath, cfg.Registry.Namespace)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return reg, nil
}

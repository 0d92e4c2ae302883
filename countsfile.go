package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qtally/cbits"
	"qtally/sim"
)

// countsFile is the on-disk form of a run's result.
type countsFile struct {
	Layout   string         `yaml:"layout"`
	BitOrder string         `yaml:"bit_order"`
	Shots    int            `yaml:"shots"`
	Seed     int64          `yaml:"seed,omitempty"`
	Backend  string         `yaml:"backend,omitempty"`
	JobID    string         `yaml:"job_id,omitempty"`
	Counts   map[string]int `yaml:"counts"`
	Memory   []string       `yaml:"memory,omitempty"`
}

func isCountsFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func saveCounts(path string, res *sim.Result, backendName, jobID string) error {
	f := countsFile{
		Layout:   res.Layout.String(),
		BitOrder: res.Layout.Order().String(),
		Shots:    res.Shots,
		Seed:     res.Seed,
		Backend:  backendName,
		JobID:    jobID,
		Counts:   res.Counts,
		Memory:   res.Memory,
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadCounts(path string) (*sim.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f countsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	layout, err := cbits.ParseLayout(f.Layout)
	if err != nil {
		return nil, fmt.Errorf("%s: layout: %w", path, err)
	}
	order, err := cbits.ParseBitOrder(f.BitOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	layout = layout.WithOrder(order)

	counts := make(cbits.Counts, len(f.Counts))
	for outcome, n := range f.Counts {
		if _, err := layout.NormalizeOutcome(outcome); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		counts[outcome] = n
	}
	shots := f.Shots
	if shots == 0 {
		shots = counts.Shots()
	}
	return &sim.Result{Layout: layout, Counts: counts, Memory: f.Memory, Shots: shots, Seed: f.Seed}, nil
}

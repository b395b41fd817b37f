// ============================================================================
// simjobs Configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: Loads the YAML run configuration into an immutable Config value
//
// Layout:
//   paths:       steering file, detector/data/job directories, setup script
//   jobs:        event counts, scheduler priority, naming policy, audit flag
//   parameters:  the four parameter axes (detectors, particles, angles, momenta)
//   geometry:    detector model -> compact geometry file mapping
//   simulation:  executable, output tree name, gun distribution
//   storage:     remote copy command and destination URL
//   scheduler:   submit command and descriptor file name
//
// Defaults are applied before decoding so a minimal file only needs paths,
// event counts, parameter axes and geometry models.
//
// ============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration. It is loaded once and never
// mutated afterwards; callers receive it by pointer.
type Config struct {
	Paths struct {
		SteeringFile string `yaml:"steering_file"`
		DetectorDir  string `yaml:"detector_dir"`
		DataDir      string `yaml:"data_dir"`
		JobDir       string `yaml:"job_dir"`
		SetupScript  string `yaml:"setup_script"`
	} `yaml:"paths"`

	Jobs struct {
		TotalEvents  int          `yaml:"total_events"`
		EventsPerJob int          `yaml:"events_per_job"`
		Priority     string       `yaml:"priority"`
		Naming       NamingPolicy `yaml:"naming"`
		CheckOutput  bool         `yaml:"check_output"`
	} `yaml:"jobs"`

	Parameters struct {
		DetectorModels []string `yaml:"detector_models"`
		Particles      []string `yaml:"particles"`
		Angles         []string `yaml:"angles"`
		Momenta        []string `yaml:"momenta"`
	} `yaml:"parameters"`

	Geometry struct {
		Root   string            `yaml:"root"`
		Models map[string]string `yaml:"models"`
	} `yaml:"geometry"`

	Simulation struct {
		Executable      string `yaml:"executable"`
		Tree            string `yaml:"tree"`
		GunDistribution string `yaml:"gun_distribution"`
	} `yaml:"simulation"`

	Storage struct {
		CopyCommand string `yaml:"copy_command"`
		RemoteURL   string `yaml:"remote_url"`
	} `yaml:"storage"`

	Scheduler struct {
		SubmitCommand  string `yaml:"submit_command"`
		DescriptorName string `yaml:"descriptor_name"`
	} `yaml:"scheduler"`
}

// Default returns a Config populated with the values used at the
// production site. Paths and parameter axes are left empty.
func Default() *Config {
	cfg := &Config{}
	cfg.Jobs.Priority = "espresso"
	cfg.Jobs.Naming = NamingUnderscore
	cfg.Jobs.CheckOutput = true
	cfg.Geometry.Root = "$k4geo_DIR"
	cfg.Simulation.Executable = "ddsim"
	cfg.Simulation.Tree = "events"
	cfg.Simulation.GunDistribution = "uniform"
	cfg.Storage.CopyCommand = "xrdcp"
	cfg.Storage.RemoteURL = "root://eosuser.cern.ch/"
	cfg.Scheduler.SubmitCommand = "condor_submit"
	cfg.Scheduler.DescriptorName = "condor_script.sub"
	return cfg
}

// Load reads and decodes the YAML file at path on top of Default().
// Validation is left to the caller so that `plan` can report every
// problem at once.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// JobDir is the directory receiving the generated scripts for this run,
// named after the first particle and first detector model.
func (c *Config) JobDir() string {
	name := "jobs"
	if len(c.Parameters.Particles) > 0 && len(c.Parameters.DetectorModels) > 0 {
		name = c.Parameters.Particles[0] + "_" + c.Parameters.DetectorModels[0]
	}
	return filepath.Join(c.Paths.JobDir, name)
}

// CompactFile resolves the compact geometry file of a detector model,
// prefixed with the geometry root (usually an environment variable the job
// shell expands).
func (c *Config) CompactFile(detector string) (string, error) {
	rel, ok := c.Geometry.Models[detector]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDetector, detector)
	}
	if c.Geometry.Root == "" || filepath.IsAbs(rel) {
		return rel, nil
	}
	return c.Geometry.Root + "/" + rel, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrMissingPath is returned when a required input path does not exist.
	ErrMissingPath = errors.New("required path does not exist")
	// ErrUnknownDetector is returned for a detector model without a geometry mapping.
	ErrUnknownDetector = errors.New("no compact geometry for detector model")
)

// Validate checks the static consistency of the configuration and returns
// every violation found, not only the first one.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Jobs.TotalEvents <= 0 {
		result = multierror.Append(result, fmt.Errorf("jobs.total_events must be > 0, got %d", c.Jobs.TotalEvents))
	}
	if c.Jobs.EventsPerJob <= 0 {
		result = multierror.Append(result, fmt.Errorf("jobs.events_per_job must be > 0, got %d", c.Jobs.EventsPerJob))
	}
	if strings.TrimSpace(c.Jobs.Priority) == "" {
		result = multierror.Append(result, errors.New("jobs.priority must not be empty"))
	}

	for _, p := range []struct {
		name string
		val  string
	}{
		{"paths.steering_file", c.Paths.SteeringFile},
		{"paths.detector_dir", c.Paths.DetectorDir},
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.job_dir", c.Paths.JobDir},
		{"paths.setup_script", c.Paths.SetupScript},
	} {
		if p.val == "" {
			result = multierror.Append(result, fmt.Errorf("%s must be set", p.name))
		}
	}

	// Particle, angle and momentum tokens are joined with "_" into file
	// names; keeping them free of "_" makes the names parse back uniquely.
	result = checkAxis(result, "parameters.detector_models", c.Parameters.DetectorModels, "/ \t")
	result = checkAxis(result, "parameters.particles", c.Parameters.Particles, "_/ \t")
	result = checkAxis(result, "parameters.angles", c.Parameters.Angles, "_/ \t")
	result = checkAxis(result, "parameters.momenta", c.Parameters.Momenta, "_/ \t")

	for _, det := range c.Parameters.DetectorModels {
		if _, ok := c.Geometry.Models[det]; !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q", ErrUnknownDetector, det))
		}
	}

	if c.Simulation.Executable == "" {
		result = multierror.Append(result, errors.New("simulation.executable must be set"))
	}
	if c.Simulation.Tree == "" {
		result = multierror.Append(result, errors.New("simulation.tree must be set"))
	}
	if c.Scheduler.SubmitCommand == "" {
		result = multierror.Append(result, errors.New("scheduler.submit_command must be set"))
	}
	if c.Scheduler.DescriptorName == "" || strings.HasSuffix(c.Scheduler.DescriptorName, ".sh") {
		result = multierror.Append(result, fmt.Errorf("scheduler.descriptor_name %q is invalid", c.Scheduler.DescriptorName))
	}

	return result.ErrorOrNil()
}

func checkAxis(result *multierror.Error, name string, values []string, forbidden string) *multierror.Error {
	if len(values) == 0 {
		return multierror.Append(result, fmt.Errorf("%s must not be empty", name))
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		switch {
		case v == "":
			result = multierror.Append(result, fmt.Errorf("%s contains an empty value", name))
		case strings.ContainsAny(v, forbidden):
			result = multierror.Append(result, fmt.Errorf("%s value %q contains one of %q", name, v, forbidden))
		case seen[v]:
			result = multierror.Append(result, fmt.Errorf("%s value %q is duplicated", name, v))
		}
		seen[v] = true
	}
	return result
}

// CheckPaths verifies that the inputs the jobs depend on exist on disk.
func (c *Config) CheckPaths() error {
	if _, err := os.Stat(c.Paths.SteeringFile); err != nil {
		return fmt.Errorf("%w: steering file %s", ErrMissingPath, c.Paths.SteeringFile)
	}
	info, err := os.Stat(c.Paths.DetectorDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: detector directory %s", ErrMissingPath, c.Paths.DetectorDir)
	}
	return nil
}

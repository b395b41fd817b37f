// ============================================================================
// simjobs Job Enumerator
// ============================================================================
//
// Package: internal/enumerator
// File: enumerator.go
// Purpose: Expands the configured parameter axes into job units and derives
//          every file name a unit owns
//
// Counting:
//   para_sets    = |detectors| x |particles| x |angles| x |momenta|
//   jobs_per_set = ceil(total_events / events_per_job)
//   total        = para_sets x jobs_per_set
//
//   jobs_per_set rounds up so the requested event count is a lower bound.
//
// Ordering:
//   angle (outermost) -> momentum -> particle -> detector -> task index
//
// Naming:
//   Names are a pure function of the unit. Particle, angle and momentum
//   tokens never contain "_" (enforced by config.Validate), so every name
//   parses back to exactly one unit.
//
// ============================================================================

package enumerator

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ChuLiYu/simjobs/internal/config"
	"github.com/ChuLiYu/simjobs/pkg/types"
)

// Counts summarises the size of an enumeration.
type Counts struct {
	ParaSets   int // distinct parameter combinations
	JobsPerSet int // task indices per combination
	Total      int // ParaSets * JobsPerSet
}

// JobsPerSet returns ceil(total / perJob). perJob must be positive.
func JobsPerSet(total, perJob int) int {
	if total <= 0 {
		return 0
	}
	return (total + perJob - 1) / perJob
}

// Count computes the enumeration size without materialising the units.
func Count(cfg *config.Config) Counts {
	p := cfg.Parameters
	sets := len(p.DetectorModels) * len(p.Particles) * len(p.Angles) * len(p.Momenta)
	perSet := JobsPerSet(cfg.Jobs.TotalEvents, cfg.Jobs.EventsPerJob)
	return Counts{
		ParaSets:   sets,
		JobsPerSet: perSet,
		Total:      sets * perSet,
	}
}

// Enumerate returns every job unit of the configuration in a stable order.
func Enumerate(cfg *config.Config) []types.JobUnit {
	counts := Count(cfg)
	units := make([]types.JobUnit, 0, counts.Total)

	p := cfg.Parameters
	for _, angle := range p.Angles {
		for _, momentum := range p.Momenta {
			for _, particle := range p.Particles {
				for _, detector := range p.DetectorModels {
					for task := 0; task < counts.JobsPerSet; task++ {
						units = append(units, types.JobUnit{
							Angle:     angle,
							Momentum:  momentum,
							Particle:  particle,
							Detector:  detector,
							TaskIndex: task,
						})
					}
				}
			}
		}
	}
	return units
}

// OutputName is the simulation output file name of a unit, e.g.
// SIM_CLD_model_1_mu_10_deg_1_GeV_10_evts_0_edm4hep.root.
func OutputName(u types.JobUnit, eventsPerJob int, policy config.NamingPolicy) string {
	parts := []string{
		"SIM_" + u.Detector,
		u.Particle,
		u.Angle + "_deg",
		u.Momentum + "_GeV",
		strconv.Itoa(eventsPerJob) + "_evts",
		strconv.Itoa(u.TaskIndex),
	}
	return strings.Join(parts, "_") + policy.Suffix()
}

// ScriptName is the job script file name of a unit, e.g.
// bash_script_CLD_model_1_mu_10_deg_1_GeV_0.sh.
func ScriptName(u types.JobUnit) string {
	parts := []string{
		"bash_script",
		u.Detector,
		u.Particle,
		u.Angle + "_deg",
		u.Momentum + "_GeV",
		strconv.Itoa(u.TaskIndex),
	}
	return strings.Join(parts, "_") + ".sh"
}

// OutputDir is <data_dir>/<detector>/SIM/<particle>.
func OutputDir(dataDir string, u types.JobUnit) string {
	return filepath.Join(dataDir, u.Detector, "SIM", u.Particle)
}

// ParseScriptName is the inverse of ScriptName.
func ParseScriptName(name string) (types.JobUnit, bool) {
	stem, ok := strings.CutSuffix(name, ".sh")
	if !ok {
		return types.JobUnit{}, false
	}
	stem, ok = strings.CutPrefix(stem, "bash_script_")
	if !ok {
		return types.JobUnit{}, false
	}

	fields := strings.Split(stem, "_")
	// detector(>=1) particle angle "deg" momentum "GeV" task
	n := len(fields)
	if n < 7 || fields[n-2] != "GeV" || fields[n-4] != "deg" {
		return types.JobUnit{}, false
	}
	task, err := strconv.Atoi(fields[n-1])
	if err != nil || task < 0 {
		return types.JobUnit{}, false
	}
	return types.JobUnit{
		Detector:  strings.Join(fields[:n-6], "_"),
		Particle:  fields[n-6],
		Angle:     fields[n-5],
		Momentum:  fields[n-3],
		TaskIndex: task,
	}, true
}

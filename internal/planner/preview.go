package planner

import (
	"path/filepath"

	"github.com/ChuLiYu/simjobs/internal/config"
	"github.com/ChuLiYu/simjobs/internal/enumerator"
	"github.com/ChuLiYu/simjobs/pkg/types"
)

// Entry is one planned unit with the files it would own.
type Entry struct {
	Unit   types.JobUnit
	Script string // path inside the job directory
	Output string // path of the simulation output
}

// Preview lists what a run would produce without touching the filesystem.
func Preview(cfg *config.Config) (enumerator.Counts, []Entry) {
	jobDir := cfg.JobDir()
	units := enumerator.Enumerate(cfg)
	entries := make([]Entry, 0, len(units))
	for _, u := range units {
		entries = append(entries, Entry{
			Unit:   u,
			Script: filepath.Join(jobDir, enumerator.ScriptName(u)),
			Output: filepath.Join(
				enumerator.OutputDir(cfg.Paths.DataDir, u),
				enumerator.OutputName(u, cfg.Jobs.EventsPerJob, cfg.Jobs.Naming),
			),
		})
	}
	return enumerator.Count(cfg), entries
}

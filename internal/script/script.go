// ============================================================================
// simjobs Script Writer
// ============================================================================
//
// Package: internal/script
// File: script.go
// Purpose: Renders the per-unit job shell script and writes it into the job
//          directory
//
// Script layout (byte-exact; every line but the last ends in " \n"):
//
//   #!/bin/bash
//   source <setup script>
//   <simulation> <args...> > /dev/null
//   <copy command> <output file> <remote url><output dir>
//   rm <output file>
//
// Simulation arguments are emitted in a fixed order so that identical units
// always produce identical scripts.
//
// ============================================================================

package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// Job holds everything rendered into one job script.
type Job struct {
	SetupScript  string
	Executable   string
	CompactFile  string
	OutputFile   string
	SteeringFile string
	Particle     string
	Momentum     string
	Angle        string
	Distribution string
	Events       int
	CopyCommand  string
	RemoteURL    string
	OutputDir    string
}

// Arguments returns the simulation command line arguments.
func (j Job) Arguments() []string {
	return []string{
		"--compactFile " + j.CompactFile,
		"--outputFile " + j.OutputFile,
		"--steeringFile " + j.SteeringFile,
		"--enableGun",
		"--gun.particle " + j.Particle + "-",
		"--gun.energy " + j.Momentum + "*GeV",
		"--gun.distribution " + j.Distribution,
		"--gun.thetaMin " + j.Angle + "*deg",
		"--gun.thetaMax " + j.Angle + "*deg",
		"--crossingAngleBoost 0",
		"--numberOfEvents " + strconv.Itoa(j.Events),
	}
}

// CommandLine is the full simulation invocation with stdout discarded.
func (j Job) CommandLine() string {
	return j.Executable + "  " + strings.Join(j.Arguments(), " ") + " > /dev/null"
}

var jobTemplate = template.Must(template.New("job").Parse(
	"#!/bin/bash \n" +
		"source {{.SetupScript}} \n" +
		"{{.CommandLine}} \n" +
		"{{.CopyCommand}} {{.OutputFile}} {{.RemoteURL}}{{.OutputDir}} \n" +
		"rm {{.OutputFile}}"))

// Render returns the script body.
func Render(j Job) ([]byte, error) {
	var buf bytes.Buffer
	if err := jobTemplate.Execute(&buf, j); err != nil {
		return nil, fmt.Errorf("failed to render job script: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders j into dir/name with executable permissions and returns
// the written path.
func Write(dir, name string, j Job) (string, error) {
	body, err := Render(j)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, body, 0755); err != nil {
		return "", fmt.Errorf("failed to write job script: %w", err)
	}
	return path, nil
}

// writeFileAtomic writes to a temp file and renames it into place, so the
// scheduler never globs a half-written script.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	// WriteFile honours umask; scripts must stay executable.
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

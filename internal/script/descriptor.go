package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/mattn/go-zglob"
)

// ScriptPattern is the glob the descriptor queues.
const ScriptPattern = "*.sh"

// Descriptor is an HTCondor submit description queueing every script in
// the job directory.
type Descriptor struct {
	Priority string // +JobFlavour
}

var descriptorTemplate = template.Must(template.New("descriptor").Parse(
	"executable = $(filename) \n" +
		"arguments = $(ClusterId) $(ProcId) \n" +
		"output = output.$(ClusterId).$(ProcId).out \n" +
		"error = error.$(ClusterId).$(ProcId).err \n" +
		"log = log.$(ClusterId).log \n" +
		"+JobFlavour = \"{{.Priority}}\" \n" +
		"queue filename matching files " + ScriptPattern + " \n"))

// RenderDescriptor returns the descriptor body.
func RenderDescriptor(d Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := descriptorTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render descriptor: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDescriptor writes the descriptor to dir/name and returns its path.
func WriteDescriptor(dir, name string, d Descriptor) (string, error) {
	body, err := RenderDescriptor(d)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write descriptor: %w", err)
	}
	return path, nil
}

// Match lists the scripts in dir the descriptor will queue, sorted by name.
func Match(dir string) ([]string, error) {
	matches, err := zglob.Glob(filepath.Join(dir, ScriptPattern))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Submission is what the scheduler reported for a submit call.
type Submission struct {
	Jobs    int
	Cluster string
}

var clusterRe = regexp.MustCompile(`(\d+) job\(s\) submitted to cluster (\d+)\.`)

// ParseSubmitOutput extracts the job count and cluster id from condor_submit
// output such as "6 job(s) submitted to cluster 4242.".
func ParseSubmitOutput(output string) (Submission, bool) {
	for _, line := range strings.Split(output, "\n") {
		m := clusterRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		jobs, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return Submission{Jobs: jobs, Cluster: m[2]}, true
	}
	return Submission{}, false
}

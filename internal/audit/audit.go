// ============================================================================
// simjobs Output Auditor
// ============================================================================
//
// Package: internal/audit
// File: audit.go
// Purpose: Decides whether a planned output file already holds the expected
//          number of simulated events
//
// Decision table:
//
//   audit disabled                     -> disabled      (regenerate)
//   file absent                        -> missing       (regenerate)
//   open fails / tree absent           -> inconclusive  (regenerate)
//   entries != expected                -> mismatch      (regenerate)
//   entries == expected                -> satisfied     (skip unit)
//
// Inconclusive results are never errors: a file that cannot be read is
// simply produced again.
//
// ============================================================================

package audit

import (
	"errors"
	"fmt"
	"os"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/ChuLiYu/simjobs/pkg/types"
)

// ErrNotATree is returned when the named key exists but is not a TTree.
var ErrNotATree = errors.New("object is not a tree")

// EntryCounter reports the number of entries of a named tree in a file.
type EntryCounter interface {
	Entries(path, tree string) (int64, error)
}

// RootCounter reads ROOT files with groot.
type RootCounter struct{}

// Entries opens path read-only and returns the entry count of tree.
func (RootCounter) Entries(path, tree string) (int64, error) {
	f, err := groot.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	obj, err := f.Get(tree)
	if err != nil {
		return 0, fmt.Errorf("failed to get %q from %s: %w", tree, path, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		return 0, fmt.Errorf("%w: %q in %s is %T", ErrNotATree, tree, path, obj)
	}
	return t.Entries(), nil
}

// Auditor checks planned outputs against the expected per-job event count.
type Auditor struct {
	enabled bool
	tree    string
	counter EntryCounter
}

// New returns an Auditor. A nil counter defaults to RootCounter.
func New(enabled bool, tree string, counter EntryCounter) *Auditor {
	if counter == nil {
		counter = RootCounter{}
	}
	return &Auditor{
		enabled: enabled,
		tree:    tree,
		counter: counter,
	}
}

// Enabled reports whether outputs are inspected at all.
func (a *Auditor) Enabled() bool {
	return a.enabled
}

// Check returns the verdict for the output at path.
func (a *Auditor) Check(path string, want int) types.Verdict {
	if !a.enabled {
		return types.VerdictDisabled
	}
	if _, err := os.Stat(path); err != nil {
		return types.VerdictMissing
	}

	n, err := a.counter.Entries(path, a.tree)
	if err != nil {
		return types.VerdictInconclusive
	}
	if n != int64(want) {
		return types.VerdictMismatch
	}
	return types.VerdictSatisfied
}

// Package cache defines the shared record types that flow through the
// cachekill pipeline: CacheEntry, the cache-kind taxonomy, dispositions,
// and the language filter used by discovery.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Kind is the closed category taxonomy for cache paths.
type Kind string

const (
	KindJavaScript      Kind = "js"
	KindPython          Kind = "py"
	KindRust            Kind = "rust"
	KindJava            Kind = "java"
	KindMachineLearning Kind = "ml"
	KindNpx             Kind = "npx"
	KindDocker          Kind = "docker"
	KindGeneric         Kind = "generic"
)

// Disposition is the planned outcome for an entry.
type Disposition string

const (
	// Delete removes the path permanently.
	Delete Disposition = "delete"
	// Backup moves the path into a timestamped backup directory.
	Backup Disposition = "backup"
	// Skip excludes the path from any action.
	Skip Disposition = "skip"
)

// Entry is the unit of work end-to-end. It is created bare by discovery,
// enriched by inspection, and consumed read-only by the executor and the
// presentation layer. No entry outlives a single invocation.
type Entry struct {
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	SizeBytes uint64    `json:"size_bytes"`
	LastUsed  time.Time `json:"last_used"`
	Stale     bool      `json:"stale"`

	// Disposition is set exactly once, by the planner, before the entry
	// reaches the executor. Empty means planning has not run yet.
	Disposition Disposition `json:"disposition,omitempty"`
}

// SizeHuman returns the entry size in decimal human units (e.g. "1.2 GB").
func (e *Entry) SizeHuman() string {
	return humanize.Bytes(e.SizeBytes)
}

// LastUsedHuman returns a short relative description of the last activity.
func (e *Entry) LastUsedHuman() string {
	d := time.Since(e.LastUsed)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return "just now"
	}
}

// LanguageFilter restricts discovery to one ecosystem, or Auto for all
// ecosystems matching the detected project type.
type LanguageFilter string

const (
	FilterAuto            LanguageFilter = "auto"
	FilterJavaScript      LanguageFilter = "js"
	FilterPython          LanguageFilter = "py"
	FilterRust            LanguageFilter = "rust"
	FilterJava            LanguageFilter = "java"
	FilterMachineLearning LanguageFilter = "ml"
)

// ParseLanguageFilter parses a user-supplied filter string.
func ParseLanguageFilter(s string) (LanguageFilter, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return FilterAuto, nil
	case "js", "javascript":
		return FilterJavaScript, nil
	case "py", "python":
		return FilterPython, nil
	case "rust":
		return FilterRust, nil
	case "java":
		return FilterJava, nil
	case "ml", "machinelearning":
		return FilterMachineLearning, nil
	default:
		return "", fmt.Errorf("unknown language filter %q (use auto, js, py, rust, java, ml)", s)
	}
}

// Matches reports whether a kind passes the filter. Auto matches everything.
func (f LanguageFilter) Matches(k Kind) bool {
	switch f {
	case FilterAuto:
		return true
	case FilterJavaScript:
		return k == KindJavaScript
	case FilterPython:
		return k == KindPython
	case FilterRust:
		return k == KindRust
	case FilterJava:
		return k == KindJava
	case FilterMachineLearning:
		return k == KindMachineLearning
	default:
		return false
	}
}

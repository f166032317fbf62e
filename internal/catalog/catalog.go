// Package catalog holds the read-only set of reference entries that user
// poses are matched against.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/kozaktomas/doppelganger/internal/pose"
)

// Entry is one reference image with its precomputed pose.
type Entry struct {
	ID         string         `json:"id"`
	Image      string         `json:"image"`
	Species    string         `json:"species"`
	Pose       pose.Keypoints `json:"pose"`
	Confidence float64        `json:"confidence"`
	HasPose    bool           `json:"has_pose"`
	Synthetic  bool           `json:"synthetic,omitempty"`
}

// Summary is the public listing form of an entry.
type Summary struct {
	ID      string `json:"id"`
	Image   string `json:"image"`
	Species string `json:"species"`
}

// Summary returns the listing form of e.
func (e Entry) Summary() Summary {
	return Summary{ID: e.ID, Image: e.Image, Species: e.Species}
}

// Source loads catalog entries from some backing store.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Catalog is an ordered, immutable collection of entries. Iteration order is
// load order and is part of the matching contract: ties go to earlier entries.
type Catalog struct {
	entries []Entry
	byID    map[string]int
	normIDs []string
}

// New builds a catalog. The entries are copied.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		entries: slices.Clone(entries),
		byID:    make(map[string]int, len(entries)),
		normIDs: make([]string, len(entries)),
	}
	for i, e := range c.entries {
		if _, dup := c.byID[e.ID]; !dup {
			c.byID[e.ID] = i
		}
		c.normIDs[i] = NormalizeID(e.ID)
	}
	return c
}

// Load builds a catalog from src.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return New(entries), nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Filter returns, in catalog order, every entry whose normalised id contains
// at least one of the patterns.
func (c *Catalog) Filter(patterns []string) []Entry {
	var out []Entry
	for i, e := range c.entries {
		if containsAny(c.normIDs[i], patterns) {
			out = append(out, e)
		}
	}
	return out
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Random returns a uniformly chosen entry, or false for an empty catalog.
func (c *Catalog) Random(rng Picker) (Entry, bool) {
	if len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[rng.IntN(len(c.entries))], true
}

// Summaries lists every entry in catalog order.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Summary()
	}
	return out
}

// WithPose counts entries that carry pose data.
func (c *Catalog) WithPose() int {
	n := 0
	for _, e := range c.entries {
		if len(e.Pose) > 0 {
			n++
		}
	}
	return n
}

// MatchesAny reports whether id contains any of the patterns after normalisation.
func MatchesAny(id string, patterns []string) bool {
	return containsAny(NormalizeID(id), patterns)
}

func containsAny(normID string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(normID, p) {
			return true
		}
	}
	return false
}

// FileSource reads a JSON array of entries from disk.
type FileSource struct {
	Path string
}

// Load reads the file. A missing file yields an empty catalog.
func (f FileSource) Load(_ context.Context) ([]Entry, error) {
	return LoadFile(f.Path)
}

// LoadFile reads a JSON catalog. A missing file is not an error.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return entries, nil
}

// WriteFile stores entries as an indented JSON array.
func WriteFile(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing catalog file: %w", err)
	}
	return nil
}

// syntheticConfidence is the confidence assigned to generated poses.
const syntheticConfidence = 0.75

// FillSynthetic gives every poseless entry a generated pose and returns how
// many entries were filled.
func FillSynthetic(entries []Entry, rng *rand.Rand) int {
	filled := 0
	for i := range entries {
		if entries[i].HasPose && len(entries[i].Pose) > 0 {
			continue
		}
		entries[i].Pose = pose.Synthesize(entries[i].ID, rng)
		entries[i].HasPose = true
		entries[i].Confidence = syntheticConfidence
		entries[i].Synthetic = true
		filled++
	}
	return filled
}

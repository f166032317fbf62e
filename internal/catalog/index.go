package catalog

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/doppelganger/internal/pose"
)

// indexMaxNeighbors is the HNSW M parameter. Catalogs are small, so a modest
// fan-out keeps recall at 100%.
const indexMaxNeighbors = 16

// ErrIndexEmpty is returned when searching an index with no posed entries.
var ErrIndexEmpty = errors.New("pose index is empty")

// Neighbor is a catalog entry near a query pose.
type Neighbor struct {
	Entry    Entry   `json:"-"`
	ID       string  `json:"id"`
	Species  string  `json:"species"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// PoseIndex is an HNSW graph over the upper-body landmarks of posed entries.
type PoseIndex struct {
	graph *hnsw.Graph[string]
	byID  map[string]Entry
	mu    sync.RWMutex
}

// NewPoseIndex creates an empty index.
func NewPoseIndex() *PoseIndex {
	return &PoseIndex{byID: make(map[string]Entry)}
}

// Build replaces the index contents with the posed entries of c.
func (p *PoseIndex) Build(c *Catalog) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	byID := make(map[string]Entry, c.Len())
	for _, e := range c.entries {
		vec := e.Pose.UpperBodyVector()
		if vec == nil {
			continue
		}
		if _, dup := byID[e.ID]; dup {
			continue
		}
		g.Add(hnsw.MakeNode(e.ID, vec))
		byID[e.ID] = e
	}

	if len(byID) == 0 {
		p.graph = nil
	} else {
		p.graph = g
	}
	p.byID = byID
}

// Len returns the number of indexed entries.
func (p *PoseIndex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

// Similar returns up to k entries closest to kp, nearest first. Distance is
// the mean upper-body joint distance and Score uses the matcher's scale.
func (p *PoseIndex) Similar(kp pose.Keypoints, k int) ([]Neighbor, error) {
	query := kp.UpperBodyVector()
	if query == nil {
		return nil, errors.New("query pose has too few landmarks")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.graph == nil {
		return nil, ErrIndexEmpty
	}

	nodes := p.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		e, ok := p.byID[n.Key]
		if !ok {
			continue
		}
		d := pose.UpperBodyDistance(kp, e.Pose)
		out = append(out, Neighbor{
			Entry:    e,
			ID:       e.ID,
			Species:  e.Species,
			Distance: math.Round(d*10000) / 10000,
			Score:    math.Round(max(0, 100-d*30)*10) / 10,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

package matching

import (
	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/config"
	"github.com/kozaktomas/doppelganger/internal/pose"
)

// PatternTables are the static lookups that steer candidate selection.
type PatternTables struct {
	Poses         map[pose.Category][]string
	UnknownPose   []string
	Expressions   map[string][]string
	ChaosMessages map[string]string
	Unmatched     catalog.Entry // stand-in when the catalog is empty during matching
	Chaos         catalog.Entry // stand-in when the catalog is empty during a productive failure
}

// TablesFromConfig converts the embedded pattern configuration.
func TablesFromConfig(p config.PatternsConfig) PatternTables {
	poses := make(map[pose.Category][]string, len(p.Poses))
	for k, v := range p.Poses {
		poses[pose.Category(k)] = v
	}
	return PatternTables{
		Poses:         poses,
		UnknownPose:   p.UnknownPose,
		Expressions:   p.Expressions,
		ChaosMessages: p.ChaosMessages,
		Unmatched:     placeholderEntry(p.Placeholders["unmatched"]),
		Chaos:         placeholderEntry(p.Placeholders["chaos"]),
	}
}

// DefaultTables returns the tables shipped with the binary.
func DefaultTables() PatternTables {
	return TablesFromConfig(config.DefaultPatterns())
}

func placeholderEntry(p config.Placeholder) catalog.Entry {
	return catalog.Entry{ID: p.ID, Image: p.Image, Species: p.Species}
}

// PosePatterns returns the id patterns for a pose category.
func (t PatternTables) PosePatterns(c pose.Category) []string {
	if p, ok := t.Poses[c]; ok {
		return p
	}
	return t.UnknownPose
}

// ChaosMessage returns the message for a failure reason.
func (t PatternTables) ChaosMessage(reason string) string {
	if msg, ok := t.ChaosMessages[reason]; ok {
		return msg
	}
	return t.ChaosMessages[ReasonDefault]
}

// Package snapshot holds the per-request result of a collector: ordered
// sections of title/value rows plus the typed index payloads.
//
// A Snapshot is assembled with a Builder and is read-only afterwards; every
// accessor returns a copy.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/hazyhaar/qmsearch/searchindex"
)

// Section names used by the built-in collectors.
const (
	SectionCurrent         = "current"
	SectionTemplate        = "template"
	SectionIndexableStatus = "indexable-status"
	SectionIndices         = "indices"
	SectionSettingStatus   = "setting-status"
	SectionIndexSettings   = "index-settings"
	SectionConstants       = "constants"
	SectionError           = "error"
)

// Row is a single human-readable fact.
type Row struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Section is a named, ordered list of rows.
type Section struct {
	Name string `json:"name"`
	Rows []Row  `json:"rows"`
}

// Snapshot is the immutable output of one collector run.
type Snapshot struct {
	topic       string
	collectedAt time.Time
	sections    []Section
	indices     []searchindex.Summary
	settings    []searchindex.SettingsDocument
}

// Topic returns the collector topic that produced the snapshot.
func (s *Snapshot) Topic() string { return s.topic }

// CollectedAt returns when the collector finished.
func (s *Snapshot) CollectedAt() time.Time { return s.collectedAt }

// Has reports whether the collector declared the section.
func (s *Snapshot) Has(name string) bool {
	for _, sec := range s.sections {
		if sec.Name == name {
			return true
		}
	}
	return false
}

// Rows returns a copy of the named section's rows. Undeclared sections
// return nil.
func (s *Snapshot) Rows(name string) []Row {
	for _, sec := range s.sections {
		if sec.Name == name {
			out := make([]Row, len(sec.Rows))
			copy(out, sec.Rows)
			return out
		}
	}
	return nil
}

// Sections returns a copy of every section in declaration order.
func (s *Snapshot) Sections() []Section {
	out := make([]Section, len(s.sections))
	for i, sec := range s.sections {
		rows := make([]Row, len(sec.Rows))
		copy(rows, sec.Rows)
		out[i] = Section{Name: sec.Name, Rows: rows}
	}
	return out
}

// Indices returns a copy of the index summaries (status topic).
func (s *Snapshot) Indices() []searchindex.Summary {
	out := make([]searchindex.Summary, len(s.indices))
	copy(out, s.indices)
	return out
}

// Settings returns a copy of the settings documents (index-settings topic).
// The settings maps themselves are shared and must not be modified.
func (s *Snapshot) Settings() []searchindex.SettingsDocument {
	out := make([]searchindex.SettingsDocument, len(s.settings))
	copy(out, s.settings)
	return out
}

// Builder assembles a Snapshot. Not safe for concurrent use.
type Builder struct {
	snap  *Snapshot
	index map[string]int
}

// NewBuilder starts a snapshot for topic, declaring sections up front so
// they exist even when nothing gets added to them.
func NewBuilder(topic string, sections ...string) *Builder {
	b := &Builder{
		snap:  &Snapshot{topic: topic},
		index: make(map[string]int),
	}
	for _, name := range sections {
		b.Declare(name)
	}
	return b
}

// Declare adds an empty section if it does not exist yet.
func (b *Builder) Declare(name string) *Builder {
	if _, ok := b.index[name]; !ok {
		b.index[name] = len(b.snap.sections)
		b.snap.sections = append(b.snap.sections, Section{Name: name, Rows: []Row{}})
	}
	return b
}

// Add appends a row to the named section, declaring it if needed.
func (b *Builder) Add(section, title, value string) *Builder {
	b.Declare(section)
	i := b.index[section]
	b.snap.sections[i].Rows = append(b.snap.sections[i].Rows, Row{Title: title, Value: value})
	return b
}

// SetIndices records the index summaries.
func (b *Builder) SetIndices(list []searchindex.Summary) *Builder {
	b.snap.indices = append([]searchindex.Summary(nil), list...)
	return b
}

// AddSettings appends one index settings document.
func (b *Builder) AddSettings(doc searchindex.SettingsDocument) *Builder {
	b.snap.settings = append(b.snap.settings, doc)
	return b
}

// Build finalises the snapshot. The builder must not be used afterwards.
func (b *Builder) Build(at time.Time) *Snapshot {
	s := b.snap
	s.collectedAt = at
	b.snap = nil
	return s
}

// Failed builds the placeholder snapshot used when a collector could not
// run at all.
func Failed(topic string, err error, at time.Time) *Snapshot {
	return NewBuilder(topic).Add(SectionError, "Collection failed", err.Error()).Build(at)
}

// MarshalJSON exposes the raw snapshot for the JSON and MCP surfaces.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Topic       string                         `json:"topic"`
		CollectedAt time.Time                      `json:"collected_at"`
		Sections    []Section                      `json:"sections"`
		Indices     []searchindex.Summary          `json:"indices,omitempty"`
		Settings    []searchindex.SettingsDocument `json:"settings,omitempty"`
	}{s.topic, s.collectedAt, s.sections, s.indices, s.settings})
}

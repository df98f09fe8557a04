package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a playlist document from a YAML file.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}
	return Parse(data)
}

// Parse parses a playlist document from YAML bytes, indexes the subjects,
// and assigns every media item its document-unique ID.
func Parse(data []byte) (*Playlist, error) {
	var p Playlist
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse playlist YAML: %w", err)
	}

	if p.Version != 1 {
		return nil, fmt.Errorf("unsupported playlist version: %d", p.Version)
	}

	p.subjectsByID = make(map[string]*Subject, len(p.Subjects))
	for _, s := range p.Subjects {
		if s.ID == "" {
			return nil, fmt.Errorf("subject without id")
		}
		if _, dup := p.subjectsByID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate subject id: %s", s.ID)
		}
		p.subjectsByID[s.ID] = s
	}

	if p.FirstSubject == "" && len(p.Subjects) > 0 {
		p.FirstSubject = p.Subjects[0].ID
	}

	// Collect the flat media registry and assign stable IDs in
	// declaration order.
	nextID := 0
	for _, s := range p.Subjects {
		collectMedia(s.Sequence.Items, &p.Media, &nextID)
	}

	return &p, nil
}

func collectMedia(items []SequenceItem, out *[]*Media, nextID *int) {
	for _, item := range items {
		if item.Media != nil {
			item.Media.ID = *nextID
			*nextID++
			*out = append(*out, item.Media)
		}
		if item.Parallel != nil {
			collectMedia(item.Parallel.Items, out, nextID)
		}
	}
}

package bench

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Corpus is the on-disk regression corpus.
type Corpus struct {
	Runs             int       `yaml:"runs"`
	PreferredCountry string    `yaml:"preferred_country"`
	SingleFallback   *bool     `yaml:"allow_non_album_fallback"`
	Releases         []Release `yaml:"releases"`
	Cases            []Case    `yaml:"cases"`
}

// Release is one canned authority release.
type Release struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Status         string   `yaml:"status"`
	PrimaryType    string   `yaml:"primary_type"`
	SecondaryTypes []string `yaml:"secondary_types"`
	Country        string   `yaml:"country"`
	Date           string   `yaml:"date"`
	ReleaseGroupID string   `yaml:"release_group"`
	Artist         string   `yaml:"artist"`
	Tracks         []Track  `yaml:"tracks"`
}

// Track places a recording on a release.
type Track struct {
	Recording string `yaml:"recording"`
	Title     string `yaml:"title"`
	Artist    string `yaml:"artist"`
	LengthMS  int    `yaml:"length_ms"`
	Position  int    `yaml:"position"`
	Disc      int    `yaml:"disc"`
}

// Case is one intent and its expected binding.
type Case struct {
	Name   string      `yaml:"name"`
	Intent Intent      `yaml:"intent"`
	Expect Expectation `yaml:"expect"`
}

// Intent mirrors binding.Intent in corpus form.
type Intent struct {
	Artist       string `yaml:"artist"`
	Title        string `yaml:"title"`
	Album        string `yaml:"album"`
	DurationMS   int    `yaml:"duration_ms"`
	AlbumContext bool   `yaml:"album_context"`
}

// Expectation names either the bound pair or the failure reason.
type Expectation struct {
	RecordingID string `yaml:"recording_id"`
	ReleaseID   string `yaml:"release_id"`
	Failure     string `yaml:"failure"`
}

// Load reads and validates a corpus file.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return Parse(data)
}

// Parse decodes a corpus. Unknown fields are rejected.
func Parse(data []byte) (*Corpus, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var corpus Corpus
	if err := dec.Decode(&corpus); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if err := corpus.validate(); err != nil {
		return nil, err
	}
	return &corpus, nil
}

func (c *Corpus) validate() error {
	if len(c.Cases) == 0 {
		return fmt.Errorf("corpus has no cases")
	}
	releases := make(map[string]struct{}, len(c.Releases))
	for i, rel := range c.Releases {
		if strings.TrimSpace(rel.ID) == "" {
			return fmt.Errorf("releases[%d]: id is required", i)
		}
		if _, dup := releases[rel.ID]; dup {
			return fmt.Errorf("releases[%d]: duplicate id %q", i, rel.ID)
		}
		releases[rel.ID] = struct{}{}
		for j, tr := range rel.Tracks {
			if strings.TrimSpace(tr.Recording) == "" {
				return fmt.Errorf("releases[%d].tracks[%d]: recording is required", i, j)
			}
		}
	}
	names := make(map[string]struct{}, len(c.Cases))
	for i, tc := range c.Cases {
		if strings.TrimSpace(tc.Name) == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if _, dup := names[tc.Name]; dup {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, tc.Name)
		}
		names[tc.Name] = struct{}{}
		exp := tc.Expect
		if exp.Failure == "" && (exp.RecordingID == "" || exp.ReleaseID == "") {
			return fmt.Errorf("case %q: expect needs recording_id and release_id, or failure", tc.Name)
		}
		if exp.Failure != "" && (exp.RecordingID != "" || exp.ReleaseID != "") {
			return fmt.Errorf("case %q: expect cannot name both a pair and a failure", tc.Name)
		}
	}
	return nil
}

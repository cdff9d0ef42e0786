package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tunebind/internal/binding"
)

// MediaKind selects the execution branch of a job.
type MediaKind string

const (
	MediaMusic MediaKind = "music"
	MediaVideo MediaKind = "video"
)

// Variant is the media-specific part of a payload. Only MusicPayload and
// VideoPayload implement it.
type Variant interface {
	Kind() MediaKind
	validate() error
}

// MusicPayload describes an audio-only acquisition of a bound recording.
type MusicPayload struct {
	Pair binding.BoundPair `json:"pair"`
	// SourceURL pins the provider item; empty means search at execution time.
	SourceURL    string `json:"source_url,omitempty"`
	AudioFormat  string `json:"audio_format,omitempty"`
	AlbumContext bool   `json:"album_context,omitempty"`
}

// Kind implements Variant.
func (*MusicPayload) Kind() MediaKind { return MediaMusic }

func (m *MusicPayload) validate() error {
	if !m.Pair.Complete() {
		return errors.New("music payload requires a complete bound pair")
	}
	return nil
}

// VideoPayload describes a direct video acquisition.
type VideoPayload struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Container string `json:"container,omitempty"`
	MaxHeight int    `json:"max_height,omitempty"`
}

// Kind implements Variant.
func (*VideoPayload) Kind() MediaKind { return MediaVideo }

func (v *VideoPayload) validate() error {
	if strings.TrimSpace(v.URL) == "" {
		return errors.New("video payload requires a url")
	}
	return nil
}

// Payload is the common envelope persisted as payload_json.
type Payload struct {
	Destination  string
	CollectionID string
	BatchID      string
	Variant      Variant
}

// Kind returns the variant's media kind.
func (p Payload) Kind() MediaKind {
	if p.Variant == nil {
		return ""
	}
	return p.Variant.Kind()
}

// Music returns the music variant, or nil.
func (p Payload) Music() *MusicPayload {
	m, _ := p.Variant.(*MusicPayload)
	return m
}

// Video returns the video variant, or nil.
func (p Payload) Video() *VideoPayload {
	v, _ := p.Variant.(*VideoPayload)
	return v
}

// Validate checks the variant is present and well formed.
func (p Payload) Validate() error {
	if p.Variant == nil {
		return errors.New("payload has no media variant")
	}
	return p.Variant.validate()
}

type payloadWire struct {
	Kind         MediaKind     `json:"kind"`
	Destination  string        `json:"destination,omitempty"`
	CollectionID string        `json:"collection_id,omitempty"`
	BatchID      string        `json:"batch_id,omitempty"`
	Music        *MusicPayload `json:"music,omitempty"`
	Video        *VideoPayload `json:"video,omitempty"`
}

// MarshalJSON writes the tagged form.
func (p Payload) MarshalJSON() ([]byte, error) {
	wire := payloadWire{
		Kind:         p.Kind(),
		Destination:  p.Destination,
		CollectionID: p.CollectionID,
		BatchID:      p.BatchID,
	}
	switch v := p.Variant.(type) {
	case *MusicPayload:
		wire.Music = v
	case *VideoPayload:
		wire.Video = v
	case nil:
	default:
		return nil, fmt.Errorf("unsupported payload variant %T", v)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the tagged form and rejects payloads that carry the
// wrong or both variants.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var wire payloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Payload{Destination: wire.Destination, CollectionID: wire.CollectionID, BatchID: wire.BatchID}
	switch wire.Kind {
	case MediaMusic:
		if wire.Music == nil || wire.Video != nil {
			return errors.New("music payload must carry only the music variant")
		}
		p.Variant = wire.Music
	case MediaVideo:
		if wire.Video == nil || wire.Music != nil {
			return errors.New("video payload must carry only the video variant")
		}
		p.Variant = wire.Video
	default:
		return fmt.Errorf("unknown media kind %q", wire.Kind)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/ack"
)

// Settings is the optional YAML settings document controlling the
// acknowledgment profile, the remote folder layout and report export.
type Settings struct {
	Ack     AckSettings    `yaml:"ack"`
	Folders FolderSettings `yaml:"folders"`
	Export  ExportSettings `yaml:"export"`
}

// AckSettings controls the generated 997 profile.
type AckSettings struct {
	SegmentTerminator   string `yaml:"segment_terminator"`
	ElementSeparator    string `yaml:"element_separator"`
	SubElementSeparator string `yaml:"sub_element_separator"`
	ControlVersion      string `yaml:"control_version"`
	FunctionalIDCode    string `yaml:"functional_id_code"`
	AcknowledgmentCode  string `yaml:"acknowledgment_code"`
}

// FolderSettings names the remote folders used by the sync workflow.
type FolderSettings struct {
	Incoming  string `yaml:"incoming"`
	Processed string `yaml:"processed"`
	Ack       string `yaml:"ack"`
}

// ExportSettings controls report export output.
type ExportSettings struct {
	Dir string `yaml:"dir"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads the YAML settings file. A missing file yields the
// defaults, and fields left empty in the file are filled in.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := &Settings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	settings.applyDefaults()

	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// AckConfig converts the settings into the generator configuration.
func (s *Settings) AckConfig() ack.Config {
	return ack.Config{
		SegmentTerminator:   s.Ack.SegmentTerminator,
		ElementSeparator:    s.Ack.ElementSeparator,
		SubElementSeparator: s.Ack.SubElementSeparator,
		LineEnding:          "\n",
		ControlVersion:      s.Ack.ControlVersion,
		FunctionalIDCode:    s.Ack.FunctionalIDCode,
		AckCode:             s.Ack.AcknowledgmentCode,
	}
}

func (s *Settings) applyDefaults() {
	if s.Ack.SegmentTerminator == "" {
		s.Ack.SegmentTerminator = "~"
	}
	if s.Ack.ElementSeparator == "" {
		s.Ack.ElementSeparator = "*"
	}
	if s.Ack.SubElementSeparator == "" {
		s.Ack.SubElementSeparator = ">"
	}
	if s.Ack.ControlVersion == "" {
		s.Ack.ControlVersion = "00401"
	}
	if s.Ack.FunctionalIDCode == "" {
		s.Ack.FunctionalIDCode = "FA"
	}
	if s.Ack.AcknowledgmentCode == "" {
		s.Ack.AcknowledgmentCode = "A"
	}
	if s.Folders.Incoming == "" {
		s.Folders.Incoming = "incoming"
	}
	if s.Folders.Processed == "" {
		s.Folders.Processed = "processed"
	}
	if s.Folders.Ack == "" {
		s.Folders.Ack = "ack_997"
	}
	if s.Export.Dir == "" {
		s.Export.Dir = "exports"
	}
}

// validate rejects delimiter settings that are not single characters.
func (s *Settings) validate() error {
	delimiters := []struct {
		name  string
		value string
	}{
		{"segment_terminator", s.Ack.SegmentTerminator},
		{"element_separator", s.Ack.ElementSeparator},
		{"sub_element_separator", s.Ack.SubElementSeparator},
	}
	for _, d := range delimiters {
		if len(d.value) != 1 {
			return fmt.Errorf("invalid %s: must be a single character, got %q", d.name, d.value)
		}
	}
	return nil
}

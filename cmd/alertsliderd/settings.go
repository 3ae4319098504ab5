package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SettingsFile reads system settings from a YAML document of integer values:
//
//	alert_slider_mute_media: 1
//
// The file is re-read on every lookup so edits made by a settings UI are seen
// by the next slider transition. A missing file or key reads as 0.
type SettingsFile struct {
	Path string
}

// NewSettingsFile returns a reader for path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{Path: ExpandPath(path)}
}

// GetInt returns the integer setting name, or def when unset.
func (s *SettingsFile) GetInt(name string, def int) (int, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return def, nil
		}
		return def, fmt.Errorf("read settings: %w", err)
	}

	var values map[string]yaml.Node
	if err := yaml.Unmarshal(b, &values); err != nil {
		return def, fmt.Errorf("decode settings %s: %w", s.Path, err)
	}

	node, ok := values[name]
	if !ok {
		return def, nil
	}
	var v int
	if err := node.Decode(&v); err != nil {
		return def, fmt.Errorf("setting %s: %w", name, err)
	}
	return v, nil
}

// MuteMediaOnSilent implements SettingsReader.
func (s *SettingsFile) MuteMediaOnSilent() (bool, error) {
	v, err := s.GetInt(settingAlertSliderMuteMedia, 0)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// deviceFile is the part of the config file holding capture settings.
type deviceFile struct {
	Device v4l2.ConnectionSettings `toml:"device"`
}

// LoadDeviceSettings decodes the [device] table of path. Keys absent from
// the table stay nil and are negotiated from device defaults.
func LoadDeviceSettings(path string) (v4l2.ConnectionSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return v4l2.ConnectionSettings{}, fmt.Errorf("read device settings: %w", err)
	}
	return ParseDeviceSettings(data)
}

// ParseDeviceSettings decodes a TOML document's [device] table. Unknown
// keys inside the table are rejected so typos surface instead of being
// silently negotiated away.
func ParseDeviceSettings(data []byte) (v4l2.ConnectionSettings, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return v4l2.ConnectionSettings{}, fmt.Errorf("parse device settings: %w", err)
	}
	table, ok := doc["device"]
	if !ok {
		return v4l2.ConnectionSettings{}, nil
	}

	section, err := toml.Marshal(map[string]any{"device": table})
	if err != nil {
		return v4l2.ConnectionSettings{}, fmt.Errorf("parse device settings: %w", err)
	}
	var f deviceFile
	dec := toml.NewDecoder(bytes.NewReader(section))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return v4l2.ConnectionSettings{}, fmt.Errorf("parse device settings: %w", err)
	}
	return f.Device, nil
}

// SaveDeviceSettings replaces the [device] table of path with s, e.g. to
// persist the values negotiated from a device. Every other table in the
// file is kept; comments and key order are not. A missing file is created.
func SaveDeviceSettings(path string, s v4l2.ConnectionSettings) error {
	doc := map[string]any{}
	mode := os.FileMode(0o644)
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if fi, err := os.Stat(path); err == nil {
			mode = fi.Mode().Perm()
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// Round-trip through TOML so typed fields land as plain values.
	section, err := toml.Marshal(deviceFile{Device: s})
	if err != nil {
		return fmt.Errorf("encode device settings: %w", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(section, &parsed); err != nil {
		return fmt.Errorf("encode device settings: %w", err)
	}
	doc["device"] = parsed["device"]

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("write device settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write device settings: %w", err)
	}
	return nil
}

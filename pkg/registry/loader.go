package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMalformedEntry marks a registry entry that cannot be used: an unknown
// source kind, more than one source kind populated, or none at all. It is
// fatal to that one server, never to the whole registry.
var ErrMalformedEntry = errors.New("malformed registry entry")

// LoadFromFile reads a single registry YAML file from disk, injects each
// server's id, and applies default values. Definitions are read fresh on
// every call; nothing is cached.
func LoadFromFile(filePath string) (*File, error) {
	cleanPath := filepath.Clean(filePath)
	// #nosec G304 -- path is user-supplied for local registry loading.
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for id, def := range file.Servers {
		def.ID = id
		setDefaults(&def)
		file.Servers[id] = def
	}

	return &file, nil
}

// LoadFromDirectory aggregates all .yaml/.yml registry files in a directory
// into one registry. A server id declared in two files is an error.
func LoadFromDirectory(dirPath string) (*File, error) {
	files, err := filepath.Glob(filepath.Join(dirPath, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(dirPath, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files = append(files, ymlFiles...)

	merged := &File{Version: "v1", Servers: map[string]ServerDefinition{}}
	for _, path := range files {
		file, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		for id, def := range file.Servers {
			if _, dup := merged.Servers[id]; dup {
				return nil, fmt.Errorf("server %q declared more than once (last in %s)", id, path)
			}
			merged.Servers[id] = def
		}
	}

	return merged, nil
}

// Validate checks that exactly one source kind is populated for the entry.
// Callers treat a failure as fatal to this server only.
func Validate(def ServerDefinition) error {
	switch def.Source.Type {
	case SourceImage:
		if def.Source.Image == "" {
			return fmt.Errorf("%w: %s: source.type=image requires source.image", ErrMalformedEntry, def.ID)
		}
	case SourceBuild:
		if def.Source.Repository == "" || def.Source.Image == "" {
			return fmt.Errorf("%w: %s: source.type=build requires source.repository and source.image", ErrMalformedEntry, def.ID)
		}
	case SourceRemote:
		if def.Source.URL == "" || def.Source.Cmd == "" {
			return fmt.Errorf("%w: %s: source.type=remote requires source.url and source.cmd", ErrMalformedEntry, def.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown source.type %q", ErrMalformedEntry, def.ID, def.Source.Type)
	}

	if def.HealthTest != nil {
		switch def.HealthTest.ParseMode {
		case "", "direct", "filter_json", "error_only":
		default:
			return fmt.Errorf("%w: %s: unknown health_test.parse_mode %q", ErrMalformedEntry, def.ID, def.HealthTest.ParseMode)
		}
	}
	return nil
}

func setDefaults(def *ServerDefinition) {
	if def.Name == "" {
		def.Name = def.ID
	}
	if def.HealthTest == nil {
		def.HealthTest = &HealthTest{}
	}
	if def.HealthTest.ParseMode == "" {
		def.HealthTest.ParseMode = "direct"
	}
	if def.HealthTest.TimeoutSeconds == 0 {
		def.HealthTest.TimeoutSeconds = 15
	}
}

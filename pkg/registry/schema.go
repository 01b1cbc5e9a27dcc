package registry

import "sort"

// Topology tags recognized in the server_type field.
const (
	TopologyAPIBased   = "api_based"
	TopologyMountBased = "mount_based"
	TopologyPrivileged = "privileged"
	TopologyStandalone = "standalone"
	TopologyRemote     = "remote"
)

// Source kinds recognized in the source.type field.
const (
	SourceImage  = "image"
	SourceBuild  = "build"
	SourceRemote = "remote"
)

// Source describes where a server's runnable artifact comes from.
// Exactly one kind is populated: an image reference to pull, a repository to
// clone and build, or a hosted endpoint bridged by a local proxy command.
type Source struct {
	// Type is one of "image", "build", "remote".
	Type string `yaml:"type" json:"type"`

	// Image is the image reference to pull (type=image) or the target tag
	// for a source build (type=build).
	Image string `yaml:"image,omitempty" json:"image,omitempty"`

	// Repository is the git URL to clone for a source build.
	Repository string `yaml:"repository,omitempty" json:"repository,omitempty"`

	// URL is the hosted endpoint for remote servers.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Cmd is the local proxy command for remote servers, or a subcommand
	// appended after the image reference for container servers.
	Cmd string `yaml:"cmd,omitempty" json:"cmd,omitempty"`

	// Entrypoint overrides the image entrypoint.
	Entrypoint string `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`

	// Dockerfile optionally points at a build recipe inside the cloned
	// repository when it is not at the conventional location.
	Dockerfile string `yaml:"dockerfile,omitempty" json:"dockerfile,omitempty"`
}

// HealthTest tunes how the verifier interprets a server's probe output.
type HealthTest struct {
	// ParseMode is one of "direct", "filter_json", "error_only".
	ParseMode string `yaml:"parse_mode,omitempty" json:"parse_mode,omitempty"`

	// TimeoutSeconds bounds a single probe exchange.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// ServerDefinition is one registry entry. ID is the map key in the registry
// file and is injected by the loader; it is the only cross-reference used
// between components.
type ServerDefinition struct {
	ID string `yaml:"-" json:"id"`

	// Name is the human-facing display name.
	Name string `yaml:"name" json:"name"`

	// ServerType is the deployment topology tag.
	ServerType string `yaml:"server_type" json:"server_type"`

	Source Source `yaml:"source" json:"source"`

	// EnvironmentVariables lists the variable names the server requires.
	EnvironmentVariables []string `yaml:"environment_variables,omitempty" json:"environment_variables,omitempty"`

	// Volumes are "SOURCE:DEST[:ro]" mapping expressions. SOURCE may be an
	// environment variable reference, a ~-relative path, or a literal path.
	Volumes []string `yaml:"volumes,omitempty" json:"volumes,omitempty"`

	// Networks are user-defined container networks to attach.
	Networks []string `yaml:"networks,omitempty" json:"networks,omitempty"`

	HealthTest *HealthTest `yaml:"health_test,omitempty" json:"health_test,omitempty"`
}

// File is the on-disk registry: a nested mapping keyed by server id.
type File struct {
	// Version of the registry format.
	Version string `yaml:"version" json:"version"`

	// Servers maps server id to its definition.
	Servers map[string]ServerDefinition `yaml:"servers" json:"servers"`
}

// IDs returns all server ids in lexical order. Every multi-server walk in
// the system iterates in this order so output stays deterministic.
func (f *File) IDs() []string {
	ids := make([]string, 0, len(f.Servers))
	for id := range f.Servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the definition for id, or false if it is not declared.
func (f *File) Get(id string) (ServerDefinition, bool) {
	def, ok := f.Servers[id]
	return def, ok
}

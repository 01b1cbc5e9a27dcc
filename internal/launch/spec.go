package launch

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mcp-fleet/pkg/envfile"
	"mcp-fleet/pkg/registry"
)

// UnresolvedRoot is the path prefix used when a volume mapping's variable
// has no value. The mapping stays visible in emitted configuration as
// /unresolved/<VAR> instead of being silently dropped or left as raw text.
const UnresolvedRoot = "/unresolved"

// ErrUnresolvedReference marks a volume mapping whose variable reference
// has no value. Recoverable: the spec still builds, with the placeholder
// path and a diagnostic.
var ErrUnresolvedReference = errors.New("unresolved variable reference")

// LaunchSpec is the resolved command/argument description for one server.
// Arguments are always separate list elements; a flag and its value are
// never concatenated into one token.
type LaunchSpec struct {
	Command string
	Args    []string
	WorkDir string
	EnvFile string
}

// VolumeMapping is one resolved host-to-container binding.
type VolumeMapping struct {
	Source      string
	Destination string
	ReadOnly    bool
}

func (m VolumeMapping) argument() string {
	arg := m.Source + ":" + m.Destination
	if m.ReadOnly {
		arg += ":ro"
	}
	return arg
}

// Builder turns registry entries plus a resolved environment into launch
// specs. It holds the shared inputs so per-server calls stay pure.
type Builder struct {
	// Env is the resolved secrets map from the environment file.
	Env map[string]string

	// EnvFilePath is referenced by --env-file on credentialed topologies.
	EnvFilePath string
}

// Build produces the LaunchSpec for one server. Diagnostics carry the
// unresolved-reference warnings; they never ride along inside the spec.
func (b *Builder) Build(def registry.ServerDefinition) (LaunchSpec, []envfile.Diagnostic, error) {
	if err := registry.Validate(def); err != nil {
		return LaunchSpec{}, nil, err
	}

	topo, err := Classify(def)
	if err != nil {
		return LaunchSpec{}, nil, err
	}

	switch topo {
	case TopologyAPIBased:
		return b.containerSpec(def, nil, nil, true)
	case TopologyMountBased:
		mounts, diags := b.resolveVolumes(def)
		spec, more, err := b.containerSpec(def, mounts, nil, len(def.EnvironmentVariables) > 0)
		return spec, append(diags, more...), err
	case TopologyPrivileged:
		mounts, diags := b.resolveVolumes(def)
		spec, more, err := b.containerSpec(def, mounts, def.Networks, len(def.EnvironmentVariables) > 0)
		return spec, append(diags, more...), err
	case TopologyStandalone:
		return b.containerSpec(def, nil, nil, false)
	case TopologyRemote:
		return b.remoteSpec(def)
	default:
		return LaunchSpec{}, nil, fmt.Errorf("%w: server %s", ErrUnknownTopology, def.ID)
	}
}

// containerSpec assembles the docker run argv shared by the four container
// topologies. The image reference comes last except for command/entrypoint
// overrides, which trail it because target images expect their own
// subcommand last.
func (b *Builder) containerSpec(def registry.ServerDefinition, mounts []VolumeMapping, networks []string, withEnvFile bool) (LaunchSpec, []envfile.Diagnostic, error) {
	args := []string{"run", "--rm", "-i"}

	if withEnvFile && b.EnvFilePath != "" {
		args = append(args, "--env-file", b.EnvFilePath)
	}

	for _, m := range mounts {
		args = append(args, "-v", m.argument())
	}

	for _, network := range networks {
		args = append(args, "--network", network)
	}

	if def.Source.Entrypoint != "" {
		args = append(args, "--entrypoint", def.Source.Entrypoint)
	}

	args = append(args, def.Source.Image)

	if def.Source.Cmd != "" {
		args = append(args, strings.Fields(def.Source.Cmd)...)
	}

	spec := LaunchSpec{Command: "docker", Args: args}
	if withEnvFile {
		spec.EnvFile = b.EnvFilePath
	}
	return spec, nil, nil
}

// remoteSpec wraps the local proxy command with the endpoint URL as its
// argument; no container is launched.
func (b *Builder) remoteSpec(def registry.ServerDefinition) (LaunchSpec, []envfile.Diagnostic, error) {
	return LaunchSpec{
		Command: def.Source.Cmd,
		Args:    []string{def.Source.URL},
	}, nil, nil
}

// resolveVolumes expands each mapping expression. A variable holding a
// comma-separated directory list fans out into one mapping per element with
// the container path derived from the element's base name.
func (b *Builder) resolveVolumes(def registry.ServerDefinition) ([]VolumeMapping, []envfile.Diagnostic) {
	var mounts []VolumeMapping
	var diags []envfile.Diagnostic

	for _, expr := range def.Volumes {
		mapping, ok := parseVolumeExpr(expr)
		if !ok {
			diags = append(diags, envfile.Diagnostic{
				Severity: envfile.SeverityWarn,
				Message:  fmt.Sprintf("server %s: skipping malformed volume expression %q", def.ID, expr),
			})
			continue
		}

		name, isVar := variableName(mapping.Source)
		if !isVar {
			mapping.Source = expandHome(mapping.Source)
			mounts = append(mounts, mapping)
			continue
		}

		value, found := b.Env[name]
		if !found || value == "" {
			mounts = append(mounts, VolumeMapping{
				Source:      path.Join(UnresolvedRoot, name),
				Destination: mapping.Destination,
				ReadOnly:    mapping.ReadOnly,
			})
			diags = append(diags, envfile.Diagnostic{
				Severity: envfile.SeverityWarn,
				Message:  fmt.Sprintf("server %s: %v: %s has no value, emitting %s/%s", def.ID, ErrUnresolvedReference, name, UnresolvedRoot, name),
			})
			continue
		}

		dirs := strings.Split(value, ",")
		if len(dirs) == 1 {
			mapping.Source = expandHome(strings.TrimSpace(value))
			mounts = append(mounts, mapping)
			continue
		}

		for _, dir := range dirs {
			dir = strings.TrimSpace(dir)
			if dir == "" {
				continue
			}
			dir = expandHome(dir)
			mounts = append(mounts, VolumeMapping{
				Source:      dir,
				Destination: path.Join(mapping.Destination, filepath.Base(dir)),
				ReadOnly:    mapping.ReadOnly,
			})
		}
	}

	return mounts, diags
}

// parseVolumeExpr splits "SOURCE:DEST[:ro]". Source expressions never
// contain colons; container destinations are absolute paths.
func parseVolumeExpr(expr string) (VolumeMapping, bool) {
	parts := strings.Split(expr, ":")
	switch len(parts) {
	case 2:
		return VolumeMapping{Source: parts[0], Destination: parts[1]}, parts[0] != "" && parts[1] != ""
	case 3:
		if parts[2] != "ro" {
			return VolumeMapping{}, false
		}
		return VolumeMapping{Source: parts[0], Destination: parts[1], ReadOnly: true}, parts[0] != "" && parts[1] != ""
	default:
		return VolumeMapping{}, false
	}
}

// variableName extracts NAME from $NAME or ${NAME} expressions.
func variableName(source string) (string, bool) {
	if !strings.HasPrefix(source, "$") {
		return "", false
	}
	name := strings.TrimPrefix(source, "$")
	name = strings.TrimPrefix(name, "{")
	name = strings.TrimSuffix(name, "}")
	return name, name != ""
}

// expandHome expands a leading tilde to the user's home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/"))
		}
	}
	return p
}

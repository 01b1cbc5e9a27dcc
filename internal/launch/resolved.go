package launch

import (
	"mcp-fleet/pkg/envfile"
	"mcp-fleet/pkg/registry"
)

// ResolvedConfig maps server id to its launch spec. It is recomputed on
// every run and never persisted; the durable artifacts are the client
// configuration files it renders into.
type ResolvedConfig map[string]LaunchSpec

// BuildAll resolves every server in the registry. Servers whose entry is
// malformed or whose topology is unknown are reported in the errors map and
// skipped; one server's problem never blocks the others. Servers without an
// image or endpoint to launch are omitted from the result.
func (b *Builder) BuildAll(file *registry.File) (ResolvedConfig, []envfile.Diagnostic, map[string]error) {
	resolved := make(ResolvedConfig, len(file.Servers))
	var diags []envfile.Diagnostic
	failures := map[string]error{}

	for _, id := range file.IDs() {
		def, _ := file.Get(id)
		spec, specDiags, err := b.Build(def)
		diags = append(diags, specDiags...)
		if err != nil {
			failures[id] = err
			continue
		}
		resolved[id] = spec
	}

	return resolved, diags, failures
}

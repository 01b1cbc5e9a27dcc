// Package render shapes resolved launch specs into the client configuration
// document and fans it out to every client destination.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"mcp-fleet/internal/launch"
	"mcp-fleet/pkg/registry"
)

// ErrInvalidDocument marks rendered output that does not parse as
// well-formed JSON. The emit step fails closed on it: nothing is written
// and existing destination files are left untouched.
var ErrInvalidDocument = errors.New("rendered document is not valid JSON")

// containerEntry shapes a container-launching server into the client's
// expected nested object.
const containerEntry = `{
  "command": {{ .Command | quote }},
  "args": {{ toJson .Args }}
}`

// remoteEntry shapes a proxy-bridged server. The shape matches the
// container form today; keeping a separate template makes the remote
// surface independently adjustable.
const remoteEntry = `{
  "command": {{ .Command | quote }},
  "args": {{ toJson .Args }}
}`

// Renderer holds the per-topology templates.
type Renderer struct {
	templates map[launch.Topology]*template.Template
}

// New compiles the topology-keyed templates with the sprig function map.
func New() (*Renderer, error) {
	sources := map[launch.Topology]string{
		launch.TopologyAPIBased:   containerEntry,
		launch.TopologyMountBased: containerEntry,
		launch.TopologyPrivileged: containerEntry,
		launch.TopologyStandalone: containerEntry,
		launch.TopologyRemote:     remoteEntry,
	}

	templates := make(map[launch.Topology]*template.Template, len(sources))
	for topo, src := range sources {
		tmpl, err := template.New(topo.String()).Funcs(sprig.TxtFuncMap()).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s template: %w", topo, err)
		}
		templates[topo] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// document is the emitted configuration shape, identical across all client
// destinations.
type document struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// Render produces the client configuration document for the resolved
// config. Every fragment is validated as JSON before assembly; a template
// regression surfaces here rather than as a corrupt file on disk.
func (r *Renderer) Render(file *registry.File, resolved launch.ResolvedConfig) ([]byte, error) {
	doc := document{MCPServers: make(map[string]json.RawMessage, len(resolved))}

	for _, id := range file.IDs() {
		spec, ok := resolved[id]
		if !ok {
			continue
		}
		def, _ := file.Get(id)
		topo, err := launch.Classify(def)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := r.templates[topo].Execute(&buf, spec); err != nil {
			return nil, fmt.Errorf("failed to render server %s: %w", id, err)
		}
		fragment := buf.Bytes()
		if !json.Valid(fragment) {
			return nil, fmt.Errorf("%w: server %s", ErrInvalidDocument, id)
		}
		doc.MCPServers[id] = json.RawMessage(fragment)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}
	out = append(out, '\n')
	if !json.Valid(out) {
		return nil, ErrInvalidDocument
	}
	return out, nil
}

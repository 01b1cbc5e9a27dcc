package render

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mcp-fleet/internal/launch"
	"mcp-fleet/pkg/registry"
)

func fixtureFile() *registry.File {
	return &registry.File{Servers: map[string]registry.ServerDefinition{
		"alpha": {
			ID:         "alpha",
			Name:       "Alpha",
			ServerType: "mount_based",
			Source:     registry.Source{Type: registry.SourceImage, Image: "example/alpha"},
			Volumes:    []string{"$ALPHA_DIR:/data"},
		},
		"hosted": {
			ID:         "hosted",
			Name:       "Hosted",
			ServerType: "remote",
			Source:     registry.Source{Type: registry.SourceRemote, URL: "https://mcp.example.com/sse", Cmd: "mcp-proxy"},
		},
	}}
}

func resolve(t *testing.T, file *registry.File) launch.ResolvedConfig {
	t.Helper()
	b := &launch.Builder{Env: map[string]string{"ALPHA_DIR": "/tmp/x"}}
	resolved, _, failures := b.BuildAll(file)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	return resolved
}

func TestRenderGolden(t *testing.T) {
	file := fixtureFile()
	renderer, err := New()
	if err != nil {
		t.Fatalf("failed to build renderer: %v", err)
	}

	doc, err := renderer.Render(file, resolve(t, file))
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	want := `{
  "mcpServers": {
    "alpha": {
      "command": "docker",
      "args": [
        "run",
        "--rm",
        "-i",
        "-v",
        "/tmp/x:/data",
        "example/alpha"
      ]
    },
    "hosted": {
      "command": "mcp-proxy",
      "args": [
        "https://mcp.example.com/sse"
      ]
    }
  }
}
`
	if diff := cmp.Diff(want, string(doc)); diff != "" {
		t.Errorf("rendered document mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderIdempotent(t *testing.T) {
	file := fixtureFile()
	renderer, err := New()
	if err != nil {
		t.Fatalf("failed to build renderer: %v", err)
	}
	resolved := resolve(t, file)

	first, err := renderer.Render(file, resolved)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := renderer.Render(file, resolved)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if string(first) != string(second) {
		t.Error("two renders of unchanged inputs are not byte-identical")
	}
}

func TestRenderValidatesDocument(t *testing.T) {
	file := fixtureFile()
	renderer, err := New()
	if err != nil {
		t.Fatalf("failed to build renderer: %v", err)
	}
	doc, err := renderer.Render(file, resolve(t, file))
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	var parsed struct {
		MCPServers map[string]struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("document does not parse: %v", err)
	}
	if parsed.MCPServers["alpha"].Command != "docker" {
		t.Errorf("alpha command = %q", parsed.MCPServers["alpha"].Command)
	}
	if len(parsed.MCPServers["hosted"].Args) != 1 {
		t.Errorf("hosted args = %v", parsed.MCPServers["hosted"].Args)
	}
}

package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmit(t *testing.T) {
	doc := []byte(`{"mcpServers":{}}`)

	t.Run("identical-bytes-at-every-destination", func(t *testing.T) {
		dir := t.TempDir()
		dests := []string{
			filepath.Join(dir, "claude", "claude_desktop_config.json"),
			filepath.Join(dir, "cursor", "deep", "mcp.json"),
		}
		if err := Emit(doc, dests); err != nil {
			t.Fatalf("Emit returned error: %v", err)
		}
		for _, dest := range dests {
			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("destination missing: %v", err)
			}
			if string(got) != string(doc) {
				t.Errorf("%s holds different bytes", dest)
			}
		}
	})

	t.Run("emit-is-idempotent", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "mcp.json")
		for i := 0; i < 2; i++ {
			if err := Emit(doc, []string{dest}); err != nil {
				t.Fatalf("Emit run %d: %v", i, err)
			}
			got, _ := os.ReadFile(dest)
			if string(got) != string(doc) {
				t.Fatalf("run %d produced different bytes", i)
			}
		}
	})

	t.Run("invalid-document-fails-closed", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "mcp.json")
		if err := os.WriteFile(dest, []byte("previous"), 0o600); err != nil {
			t.Fatal(err)
		}

		err := Emit([]byte(`{"mcpServers":`), []string{dest})
		if !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("expected ErrInvalidDocument, got %v", err)
		}
		got, _ := os.ReadFile(dest)
		if string(got) != "previous" {
			t.Error("existing destination was touched despite validation failure")
		}
	})
}

func TestSecretsTemplate(t *testing.T) {
	file := fixtureFile()
	def := file.Servers["alpha"]
	def.EnvironmentVariables = []string{"ALPHA_TOKEN"}
	file.Servers["alpha"] = def

	t.Run("deterministic", func(t *testing.T) {
		if string(SecretsTemplate(file)) != string(SecretsTemplate(file)) {
			t.Error("two generations differ")
		}
	})

	t.Run("stanza-per-server-with-placeholders", func(t *testing.T) {
		out := string(SecretsTemplate(file))
		if !strings.Contains(out, "# Alpha\n") {
			t.Errorf("missing display-name stanza:\n%s", out)
		}
		if !strings.Contains(out, "ALPHA_TOKEN=your-alpha-token-here\n") {
			t.Errorf("missing placeholder line:\n%s", out)
		}
		if strings.Contains(out, "Hosted") {
			t.Errorf("server without variables got a stanza:\n%s", out)
		}
	})

	t.Run("never-touches-the-secrets-file", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("ALPHA_TOKEN=real\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		examplePath, err := EmitSecretsTemplate(file, envPath)
		if err != nil {
			t.Fatalf("EmitSecretsTemplate returned error: %v", err)
		}
		if examplePath != envPath+".example" {
			t.Errorf("example path = %q", examplePath)
		}
		got, _ := os.ReadFile(envPath)
		if string(got) != "ALPHA_TOKEN=real\n" {
			t.Error("the durable secrets file was modified")
		}
		if _, err := os.Stat(examplePath); err != nil {
			t.Errorf("example sibling missing: %v", err)
		}
	})
}

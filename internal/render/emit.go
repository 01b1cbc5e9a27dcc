package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mcp-fleet/pkg/envfile"
	"mcp-fleet/pkg/registry"
)

// Emit writes the identical document to every destination path, creating
// parent directories as needed. Destinations are fully overwritten, never
// merged. The document is validated once more up front so a bad render can
// never leave a partial or corrupt file behind. Each file is written
// atomically, but the fan-out is not transactional: a failure at the Nth
// destination leaves the earlier ones already updated. Every destination
// holds either its previous content or the complete new document, and a
// re-run converges them.
func Emit(doc []byte, destinations []string) error {
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}

	for _, dest := range destinations {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", dest, err)
		}
		if err := writeFileAtomic(dest, doc); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
	}

	return nil
}

// writeFileAtomic writes via a temp file and rename so a failed write never
// truncates an existing destination.
func writeFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// SecretsTemplate renders the example secrets file: one stanza per server
// that declares environment variables, fully deterministic so regenerating
// it produces no spurious version-control diffs.
func SecretsTemplate(file *registry.File) []byte {
	var b strings.Builder
	b.WriteString("# Secrets for mcp-fleet servers. Copy to your environment file and\n")
	b.WriteString("# replace each placeholder with a real value.\n")

	for _, id := range file.IDs() {
		def, _ := file.Get(id)
		if len(def.EnvironmentVariables) == 0 {
			continue
		}
		b.WriteString("\n# " + def.Name + "\n")
		for _, name := range def.EnvironmentVariables {
			b.WriteString(name + "=" + envfile.Placeholder(name) + "\n")
		}
	}

	return []byte(b.String())
}

// EmitSecretsTemplate regenerates the example sibling of the durable
// secrets file. The secrets file itself is never touched.
func EmitSecretsTemplate(file *registry.File, envFilePath string) (string, error) {
	examplePath := envFilePath + ".example"
	if err := os.MkdirAll(filepath.Dir(examplePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", examplePath, err)
	}
	if err := writeFileAtomic(examplePath, SecretsTemplate(file)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", examplePath, err)
	}
	return examplePath, nil
}

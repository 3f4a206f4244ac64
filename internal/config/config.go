// Package config loads .wikilsp.yaml, layering it over built-in
// defaults with koanf, mirroring the teacher's
// internal/rules/configutil.Resolve generic-over-defaults pattern but
// specialized to a single top-level config struct instead of per-rule
// option maps.
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/gkampitakis/ciinfo"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the server's workspace-scoped settings.
type Config struct {
	// Include lists additional glob patterns (relative to the workspace
	// root) to index beyond the mandatory "**/*.md".
	Include []string `koanf:"include"`
	// Exclude lists glob patterns to skip even if they match Include or
	// the mandatory default.
	Exclude []string `koanf:"exclude"`
	// AmbiguousReferenceDiagnostics toggles the
	// ambiguous-reference-target diagnostic; broken-reference and
	// duplicate-heading diagnostics are never optional.
	AmbiguousReferenceDiagnostics bool `koanf:"ambiguousReferenceDiagnostics"`
}

// Default returns the built-in configuration used when no
// .wikilsp.yaml is present, or when it fails to parse.
func Default() Config {
	return Config{
		Include:                       nil,
		Exclude:                       nil,
		AmbiguousReferenceDiagnostics: true,
	}
}

const fileName = ".wikilsp.yaml"

// Load reads <root>/.wikilsp.yaml if present and layers it over
// Default(). A missing file is not an error; a malformed one logs
// nothing itself (the caller decides whether to report it) and falls
// back to Default().
func Load(root string) (Config, error) {
	defaults := Default()

	path := filepath.Join(root, fileName)
	if _, err := os.Stat(path); err != nil {
		return defaults, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"include":                       defaults.Include,
		"exclude":                       defaults.Exclude,
		"ambiguousReferenceDiagnostics": defaults.AmbiguousReferenceDiagnostics,
	}, "."), nil); err != nil {
		return defaults, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return defaults, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return defaults, err
	}

	if hint := rescanHint(); hint != "" {
		log.Println(hint)
	}
	return cfg, nil
}

// rescanHint returns a one-line reminder that .wikilsp.yaml edits only
// take effect on server restart (this server has no file watcher), or
// "" when running under CI, where a restart hint is noise: CI jobs
// start one server per run and never live-edit config mid-session.
func rescanHint() string {
	if ciName() != "" {
		return ""
	}
	return "config: .wikilsp.yaml loaded; restart the server to pick up further edits"
}

// ciName returns the detected CI provider name, or "" outside CI.
func ciName() string {
	if !ciinfo.IsCI {
		return ""
	}
	return ciinfo.Name
}

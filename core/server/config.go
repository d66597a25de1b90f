package server

import "strings"

// Config holds configuration for the asset server.
type Config struct {
	// Root is the directory served as the default source namespace.
	Root string `mapstructure:"root" default:"assets"`
	// Watch enables hot reload from source change notifications.
	Watch bool `mapstructure:"watch" default:"true"`
	// DegradedDeps downgrades required-dependency failures: instead of
	// failing, the dependent reaches Loaded flagged as degraded.
	// Fail-fast is the default and the recommended mode.
	DegradedDeps bool `mapstructure:"degraded_deps" default:"false"`
	// ImportArtifacts enables writing serialized import artifacts for
	// loaded assets that have a registered serializer.
	ImportArtifacts bool `mapstructure:"import_artifacts" default:"false"`
	// ImportPrefix is the path prefix import artifacts are written
	// under, within the asset's own source namespace.
	ImportPrefix string `mapstructure:"import_prefix" default:"imports"`
	// RawExtensions is the comma-separated list of extensions the
	// built-in raw loader accepts.
	RawExtensions string `mapstructure:"raw_extensions" default:"bin,png,jpg,glb"`
}

// RawExtensionList splits RawExtensions into individual extensions.
func (c Config) RawExtensionList() []string {
	var out []string
	for _, e := range strings.Split(c.RawExtensions, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

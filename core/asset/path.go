package asset

import (
	"path"
	"strings"
)

// DefaultSource is the source namespace assumed when a path string does
// not carry an explicit "source://" prefix.
const DefaultSource = "default"

// Path addresses an external source, or one labeled sub-asset of a
// source that produces several. Two Paths are equal iff source,
// relative path and label all match.
type Path struct {
	// Source is the namespace the path is resolved in (e.g. "default",
	// "remote"). Each namespace maps to one SourceIO implementation.
	Source string
	// Path is the relative path within the source, slash-separated.
	Path string
	// Label selects one sub-asset of a multi-asset source. Empty for
	// the default asset.
	Label string
}

// ParsePath parses the string form "source://relative/path#label".
// Source and label are optional; "textures/wood.png" resolves in the
// default namespace with no label.
func ParsePath(s string) Path {
	var p Path
	p.Source = DefaultSource

	if i := strings.Index(s, "://"); i >= 0 {
		if i > 0 {
			p.Source = s[:i]
		}
		s = s[i+3:]
	}
	if i := strings.LastIndexByte(s, '#'); i >= 0 {
		p.Label = s[i+1:]
		s = s[:i]
	}
	p.Path = s
	return p
}

// NewPath returns the parsed path with any label stripped.
func NewPath(s string) Path {
	return ParsePath(s).SourcePath()
}

func (p Path) String() string {
	var b strings.Builder
	if p.Source != "" && p.Source != DefaultSource {
		b.WriteString(p.Source)
		b.WriteString("://")
	}
	b.WriteString(p.Path)
	if p.Label != "" {
		b.WriteByte('#')
		b.WriteString(p.Label)
	}
	return b.String()
}

// SourcePath returns the path without its label, addressing the source
// as a whole. Load deduplication and metadata are keyed on this form.
func (p Path) SourcePath() Path {
	p.Label = ""
	return p
}

// WithLabel returns a copy addressing the given labeled sub-asset.
func (p Path) WithLabel(label string) Path {
	p.Label = label
	return p
}

// Extension returns the file extension without the leading dot, used
// for loader resolution. Empty when the path has none.
func (p Path) Extension() string {
	ext := path.Ext(p.Path)
	return strings.TrimPrefix(ext, ".")
}

// IsZero reports whether the path is empty.
func (p Path) IsZero() bool {
	return p.Path == ""
}

// Dependency is a dependency declaration emitted by a loader: the path
// of the required source plus whether the dependent can complete
// without it.
type Dependency struct {
	Path     Path
	Optional bool
}

// Dep declares a required dependency on the given path string.
func Dep(s string) Dependency {
	return Dependency{Path: ParsePath(s)}
}

// OptionalDep declares a dependency that does not gate the dependent's
// Loaded transition.
func OptionalDep(s string) Dependency {
	return Dependency{Path: ParsePath(s), Optional: true}
}

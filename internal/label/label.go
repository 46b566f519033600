package label

import (
	"strings"
)

// Label is the structured representation of a canonical target identifier,
// e.g. `//pkg/path:name` or `@repo//pkg/path:name`.
type Label struct {
	// Repo is the repository name without the leading `@`. Empty for the
	// main repository.
	Repo string `json:"repo,omitempty"`
	// Package is the slash-separated package path.
	Package string `json:"package"`
	// Name is the target name within the package.
	Name string `json:"name"`
}

// String serializes the Label into its canonical string representation.
func (l Label) String() string {
	var sb strings.Builder
	if l.Repo != "" {
		sb.WriteByte('@')
		sb.WriteString(l.Repo)
	}
	sb.WriteString("//")
	sb.WriteString(l.Package)
	sb.WriteByte(':')
	sb.WriteString(l.Name)
	return sb.String()
}

// IsExternal reports whether the label points into an external repository.
func (l Label) IsExternal() bool {
	return l.Repo != ""
}

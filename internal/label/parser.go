package label

import (
	"fmt"
	"regexp"
	"strings"
)

// partRegex validates a single repository, package segment, or target name.
var partRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+$`)

// isValidPart checks for undesirable but technically matching names.
func isValidPart(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return true
}

// Parse creates a Label by parsing its canonical string representation.
// Accepted forms are `//pkg:name`, `@repo//pkg:name`, and the shorthand
// `//pkg`, which implies a target named after the last package segment.
func Parse(raw string) (Label, error) {
	if raw == "" {
		return Label{}, fmt.Errorf("label cannot be empty")
	}

	var l Label
	rest := raw
	if strings.HasPrefix(rest, "@") {
		slash := strings.Index(rest, "//")
		if slash < 0 {
			return Label{}, fmt.Errorf("invalid label %q: repository reference missing //", raw)
		}
		l.Repo = rest[1:slash]
		if l.Repo == "" || !partRegex.MatchString(l.Repo) {
			return Label{}, fmt.Errorf("invalid label %q: bad repository name %q", raw, l.Repo)
		}
		rest = rest[slash:]
	}

	if !strings.HasPrefix(rest, "//") {
		return Label{}, fmt.Errorf("invalid label %q: must start with // or @repo//", raw)
	}
	rest = rest[2:]

	pkg, name, found := strings.Cut(rest, ":")
	if !found {
		// Shorthand: //a/b means //a/b:b.
		segments := strings.Split(pkg, "/")
		name = segments[len(segments)-1]
	}
	if pkg == "" {
		return Label{}, fmt.Errorf("invalid label %q: empty package path", raw)
	}
	for _, segment := range strings.Split(pkg, "/") {
		if segment == "" {
			return Label{}, fmt.Errorf("invalid label %q: package path contains empty segment", raw)
		}
		if !partRegex.MatchString(segment) || !isValidPart(segment) {
			return Label{}, fmt.Errorf("invalid label %q: bad package segment %q", raw, segment)
		}
	}
	if name == "" || !partRegex.MatchString(name) || !isValidPart(name) {
		return Label{}, fmt.Errorf("invalid label %q: bad target name %q", raw, name)
	}

	l.Package = pkg
	l.Name = name
	return l, nil
}

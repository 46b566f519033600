package node

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/buildgraphgo/internal/label"
)

// Kind tags the function that computes a node. Kinds form a closed set;
// dirtiness checkers and completors select the kinds they govern by tag.
type Kind string

const (
	KindRepoDir          Kind = "repository-directory"
	KindConfiguration    Kind = "configuration"
	KindConfiguredTarget Kind = "configured-target"
	KindAspect           Kind = "aspect"
	KindTargetCompletion Kind = "target-completion"
	KindAspectCompletion Kind = "aspect-completion"
)

// Key is the canonical identity of one memoized computation. Concrete keys
// are small comparable structs so they can be used directly as map keys:
// two logically identical computations always produce == keys.
type Key interface {
	Kind() Kind
	String() string
}

// RepoDirKey identifies the materialized directory of one external repository.
type RepoDirKey struct {
	Repo string
}

func (k RepoDirKey) Kind() Kind     { return KindRepoDir }
func (k RepoDirKey) String() string { return fmt.Sprintf("%s:@%s", KindRepoDir, k.Repo) }

// ConfigurationKey identifies a build configuration by its content checksum.
type ConfigurationKey struct {
	Checksum string
}

func (k ConfigurationKey) Kind() Kind     { return KindConfiguration }
func (k ConfigurationKey) String() string { return fmt.Sprintf("%s:%s", KindConfiguration, k.Checksum) }

// ConfiguredTargetKey identifies the analysis of one target under one
// configuration. ConfigChecksum is empty for configuration-free targets.
type ConfiguredTargetKey struct {
	Label          label.Label
	ConfigChecksum string
}

func (k ConfiguredTargetKey) Kind() Kind { return KindConfiguredTarget }
func (k ConfiguredTargetKey) String() string {
	return fmt.Sprintf("%s:%s@%s", KindConfiguredTarget, k.Label, shortChecksum(k.ConfigChecksum))
}

// ConfigurationKeyOrNil returns the key of the owning configuration, or nil
// for a configuration-free target.
func (k ConfiguredTargetKey) ConfigurationKeyOrNil() Key {
	if k.ConfigChecksum == "" {
		return nil
	}
	return ConfigurationKey{Checksum: k.ConfigChecksum}
}

// AspectKey identifies an aspect applied to one configured target.
type AspectKey struct {
	Base        ConfiguredTargetKey
	AspectClass string
}

func (k AspectKey) Kind() Kind { return KindAspect }
func (k AspectKey) String() string {
	return fmt.Sprintf("%s:%s@%s#%s", KindAspect, k.Base.Label, shortChecksum(k.Base.ConfigChecksum), k.AspectClass)
}

// TargetCompletionKey is the top-level key driving completion of one target.
// Groups is the canonical (sorted, comma-joined) requested output-group set,
// kept as a string so the key stays comparable.
type TargetCompletionKey struct {
	Target ConfiguredTargetKey
	Groups string
}

func (k TargetCompletionKey) Kind() Kind { return KindTargetCompletion }
func (k TargetCompletionKey) String() string {
	return fmt.Sprintf("%s:%s@%s[%s]", KindTargetCompletion, k.Target.Label, shortChecksum(k.Target.ConfigChecksum), k.Groups)
}

// AspectCompletionKey is the top-level key driving completion of one aspect.
type AspectCompletionKey struct {
	Aspect AspectKey
	Groups string
}

func (k AspectCompletionKey) Kind() Kind { return KindAspectCompletion }
func (k AspectCompletionKey) String() string {
	return fmt.Sprintf("%s:%s[%s]", KindAspectCompletion, k.Aspect, k.Groups)
}

// CanonicalGroups normalizes a requested output-group set into its canonical
// string form: sorted, deduplicated, comma-joined.
func CanonicalGroups(groups []string) string {
	if len(groups) == 0 {
		return "default"
	}
	seen := make(map[string]struct{}, len(groups))
	unique := make([]string, 0, len(groups))
	for _, g := range groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		unique = append(unique, g)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}

// SplitGroups is the inverse of CanonicalGroups.
func SplitGroups(groups string) []string {
	if groups == "" {
		return nil
	}
	return strings.Split(groups, ",")
}

func shortChecksum(checksum string) string {
	if checksum == "" {
		return "null"
	}
	if len(checksum) > 12 {
		return checksum[:12]
	}
	return checksum
}

package buildconfig

import (
	"errors"
	"fmt"
)

// ErrConflictingConfigurations is returned when two target configurations in
// the same collection share a checksum. Duplicate checksums would make cached
// node identities ambiguous, so this is fatal rather than silently deduplicated.
var ErrConflictingConfigurations = errors.New("conflicting configurations")

// Collection is a convenience container for the top-level target
// configurations of one build request, plus the host configuration used for
// tools executed during the build.
//
// The host configuration does not participate in conflict detection because
// it may legitimately be identical to (or derived from) a target configuration.
type Collection struct {
	targetConfigurations []*Configuration
	hostConfiguration    *Configuration
}

// NewCollection validates and builds a Collection. It fails with
// ErrConflictingConfigurations if any two target configurations share a
// checksum, regardless of their order in the input.
func NewCollection(targetConfigurations []*Configuration, hostConfiguration *Configuration) (*Collection, error) {
	seen := make(map[string]*Configuration, len(targetConfigurations))
	for _, config := range targetConfigurations {
		if old, ok := seen[config.Checksum()]; ok {
			return nil, fmt.Errorf("%w: %s & %s", ErrConflictingConfigurations, config, old)
		}
		seen[config.Checksum()] = config
	}

	return &Collection{
		targetConfigurations: append([]*Configuration(nil), targetConfigurations...),
		hostConfiguration:    hostConfiguration,
	}, nil
}

// TargetConfigurations returns the target configurations in their original
// input order.
func (c *Collection) TargetConfigurations() []*Configuration {
	return c.targetConfigurations
}

// HostConfiguration returns the single host configuration for this collection.
func (c *Collection) HostConfiguration() *Configuration {
	return c.hostConfiguration
}

// ByChecksum finds a target configuration by its checksum. The host
// configuration is not searched.
func (c *Collection) ByChecksum(checksum string) (*Configuration, bool) {
	for _, config := range c.targetConfigurations {
		if config.Checksum() == checksum {
			return config, true
		}
	}
	return nil, false
}

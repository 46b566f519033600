package buildconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Configuration is an immutable set of build options identified by a stable,
// content-derived checksum. Two configurations with equal option sets always
// produce the same checksum, independent of insertion order.
type Configuration struct {
	mnemonic string
	options  map[string]string
	checksum string
}

// New creates a Configuration from a mnemonic and its option map. The
// checksum is computed once, over the sorted option pairs, so it is stable
// across processes and map iteration orders.
func New(mnemonic string, options map[string]string) *Configuration {
	copied := make(map[string]string, len(options))
	for k, v := range options {
		copied[k] = v
	}
	return &Configuration{
		mnemonic: mnemonic,
		options:  copied,
		checksum: fingerprint(mnemonic, copied),
	}
}

// Mnemonic returns the short human-readable name of the configuration,
// e.g. "k8-fastbuild".
func (c *Configuration) Mnemonic() string {
	return c.mnemonic
}

// Checksum returns the stable content-derived identity of the configuration.
func (c *Configuration) Checksum() string {
	return c.checksum
}

// Option returns the value of a single option and whether it is set.
func (c *Configuration) Option(name string) (string, bool) {
	v, ok := c.options[name]
	return v, ok
}

// OptionNames returns the sorted names of all options.
func (c *Configuration) OptionNames() []string {
	names := make([]string, 0, len(c.options))
	for name := range c.options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the configuration as its mnemonic plus a checksum prefix,
// which is how it appears in diagnostics.
func (c *Configuration) String() string {
	short := c.checksum
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s (%s)", c.mnemonic, short)
}

func fingerprint(mnemonic string, options map[string]string) string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(mnemonic)
	for _, name := range names {
		sb.WriteByte(0)
		sb.WriteString(name)
		sb.WriteByte(0)
		sb.WriteString(options[name])
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

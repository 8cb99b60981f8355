// Package allowlist restricts which record owners participate in a sync
// run. An empty list means no restriction; a populated list skips every
// owner not on it.
package allowlist

import (
	"net/mail"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// List is a set of owner email addresses permitted to sync.
type List struct {
	addresses map[string]struct{}
}

// New builds a list from raw addresses. Entries are trimmed and lowercased;
// entries that do not parse as email addresses are logged and dropped
// rather than failing the run.
func New(addresses []string) *List {
	l := &List{addresses: make(map[string]struct{}, len(addresses))}
	for _, raw := range addresses {
		addr := strings.ToLower(strings.TrimSpace(raw))
		if addr == "" {
			continue
		}
		if _, err := mail.ParseAddress(addr); err != nil {
			logging.Warn().Str("address", raw).Msg("Dropping malformed allow-list entry")
			continue
		}
		l.addresses[addr] = struct{}{}
	}
	return l
}

// Parse builds a list from a delimited string, as carried in an environment
// variable. Semicolons and commas both delimit.
func Parse(raw string) *List {
	raw = strings.ReplaceAll(raw, ",", ";")
	return New(strings.Split(raw, ";"))
}

// file is the YAML shape of an allow-list file.
type file struct {
	Allowed []string `yaml:"allowed"`
}

// Load reads a YAML allow-list file.
func Load(path string) (*List, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Component: "allowlist", Message: "cannot read " + path, Err: err}
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return New(f.Allowed), nil
}

// Empty reports whether the list imposes no restriction.
func (l *List) Empty() bool {
	return l == nil || len(l.addresses) == 0
}

// Allows reports whether the owner with the given address may sync. An
// empty list allows everyone.
func (l *List) Allows(address string) bool {
	if l.Empty() {
		return true
	}
	_, ok := l.addresses[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// Len returns the number of listed addresses.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.addresses)
}

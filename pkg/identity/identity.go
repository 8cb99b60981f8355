// Package identity resolves which user on one calendar system corresponds
// to a given record owner on the other.
//
// Resolution is deterministic: a fixed set of local-part candidates is
// derived from the owner's username and email, crossed against the
// counterpart system's known email domains, and each resulting address is
// probed by exact lookup until one resolves. No candidate resolving is a
// normal outcome, not an error.
package identity

import (
	"context"
	"strings"

	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// Identity is a resolved user on the counterpart system.
type Identity struct {
	ID      string
	Address string
	Name    string
}

// Owner describes a record owner on the originating system. Username is the
// login name and may itself be an email address.
type Owner struct {
	Username string
	Email    string
}

// Directory exposes the counterpart system's identity surface. FindByAddress
// reports a missing identity as an ErrNotFound-classified error, which the
// matcher treats as "try the next candidate".
type Directory interface {
	Domains(ctx context.Context) ([]string, error)
	FindByAddress(ctx context.Context, address string) (*Identity, error)
}

// Candidates produces the probe addresses for owner across domains, in the
// order they will be tried. Local parts come from the username then the
// email, each yielding its portion before "@" and, when present, its portion
// before "+". Domains keep their discovery order. Duplicates are dropped on
// first occurrence; everything is lowercased.
func Candidates(owner Owner, domains []string) []string {
	parts := localParts(owner)
	seen := make(map[string]struct{}, len(parts)*len(domains))
	addrs := make([]string, 0, len(parts)*len(domains))
	for _, part := range parts {
		for _, domain := range domains {
			addr := part + "@" + strings.ToLower(strings.TrimSpace(domain))
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

func localParts(owner Owner) []string {
	var parts []string
	seen := make(map[string]struct{}, 4)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}
	for _, field := range []string{owner.Username, owner.Email} {
		if field == "" {
			continue
		}
		base := field
		if at := strings.Index(base, "@"); at >= 0 {
			base = base[:at]
		}
		add(base)
		if plus := strings.Index(base, "+"); plus >= 0 {
			add(base[:plus])
		}
	}
	return parts
}

// Matcher probes a Directory for an owner's counterpart identity, memoizing
// both the domain list and individual address lookups.
type Matcher struct {
	directory Directory
	cache     *cache.Cache
}

// NewMatcher returns a Matcher backed by directory. The cache is shared with
// the owning client so repeated owners within a run cost one probe set.
func NewMatcher(directory Directory, c *cache.Cache) *Matcher {
	return &Matcher{directory: directory, cache: c}
}

// Match returns the first identity that resolves among the owner's candidate
// addresses, or (nil, nil) when none do. Only failures other than not-found
// surface as errors.
func (m *Matcher) Match(ctx context.Context, owner Owner) (*Identity, error) {
	domains, err := m.domains(ctx)
	if err != nil {
		return nil, err
	}
	for _, addr := range Candidates(owner, domains) {
		id, err := m.find(ctx, addr)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if id != nil {
			logging.Debug().
				Str("owner", owner.Username).
				Str("address", addr).
				Msg("Counterpart identity resolved")
			return id, nil
		}
	}
	return nil, nil
}

func (m *Matcher) domains(ctx context.Context) ([]string, error) {
	v, err := m.cache.GetOrSet("identity:domains", func() (any, error) {
		return m.directory.Domains(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (m *Matcher) find(ctx context.Context, address string) (*Identity, error) {
	v, err := m.cache.GetOrSet("identity:addr:"+address, func() (any, error) {
		id, err := m.directory.FindByAddress(ctx, address)
		if err != nil {
			return nil, err
		}
		if id == nil {
			return nil, &errors.NotFoundError{Resource: "identity", ID: address}
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Identity), nil
}

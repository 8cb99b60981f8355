package appointment

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/pkg/constants"
)

// Metadata is the extensible key/value side-channel carried by every
// record. The engine only ever reads and writes the fixed well-known keys
// in pkg/constants; anything else in the map belongs to the owning system
// and is passed through untouched.
type Metadata map[string]string

// LinkedID returns the counterpart record's id, or "" when the record is
// unlinked.
func (m Metadata) LinkedID() string {
	return m[constants.MetaLinkedID]
}

// SetLinkedID records the counterpart record's id.
func (m Metadata) SetLinkedID(id string) {
	m[constants.MetaLinkedID] = id
}

// ClearLinkedID removes the counterpart reference, used when rolling back
// a half-created link.
func (m Metadata) ClearLinkedID() {
	delete(m, constants.MetaLinkedID)
}

// IsPlaceholder reports whether the record was synthesized by this engine
// purely to mirror a counterpart appointment.
func (m Metadata) IsPlaceholder() bool {
	return m[constants.MetaIsPlaceholder] == "true"
}

// MarkPlaceholder marks the record as engine-synthesized.
func (m Metadata) MarkPlaceholder() {
	m[constants.MetaIsPlaceholder] = "true"
}

// LastSyncAt returns the instant of the last successful sync, if stamped.
func (m Metadata) LastSyncAt() (utc.Time, bool) {
	raw, ok := m[constants.MetaLastSyncAt]
	if !ok || raw == "" {
		return utc.Time{}, false
	}
	t, err := utc.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return utc.Time{}, false
	}
	return t, true
}

// SetLastSyncAt stamps the last successful sync instant.
func (m Metadata) SetLastSyncAt(t utc.Time) {
	m[constants.MetaLastSyncAt] = t.Format(time.RFC3339Nano)
}

// Clone returns an independent copy of the metadata map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

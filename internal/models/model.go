package models

import "time"

// ArenaOwner is the owned_by label carried by arena (side-by-side comparison) models.
const ArenaOwner = "arena"

// ModelRecord is a selectable model as listed by an OpenAI-compatible /v1/models endpoint.
// Every field beyond the identity fields is optional upstream; pointer fields are nil when absent.
type ModelRecord struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	Object  string     `json:"object,omitempty"`
	Created int64      `json:"created,omitempty"`
	OwnedBy string     `json:"owned_by,omitempty"`
	Arena   *bool      `json:"arena,omitempty"`
	Info    *ModelInfo `json:"info,omitempty"`
}

// ModelInfo carries per-model settings attached by the upstream catalog.
type ModelInfo struct {
	Meta *ModelMeta `json:"meta,omitempty"`
}

// ModelMeta holds display metadata. Hidden models are not shown in listings.
type ModelMeta struct {
	Hidden      *bool  `json:"hidden,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsHidden reports whether info.meta.hidden is present and true.
func (m ModelRecord) IsHidden() bool {
	if m.Info == nil || m.Info.Meta == nil {
		return false
	}
	return boolValue(m.Info.Meta.Hidden)
}

// IsArenaFlagged reports whether the arena flag is present and true.
func (m ModelRecord) IsArenaFlagged() bool {
	return boolValue(m.Arena)
}

// IsArena reports whether the record is owned by the arena or carries the arena flag.
func (m ModelRecord) IsArena() bool {
	return m.OwnedBy == ArenaOwner || m.IsArenaFlagged()
}

// DisplayName returns Name, falling back to ID when the upstream omitted it.
func (m ModelRecord) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// Bool returns a pointer to b, for building records with optional flags.
func Bool(b bool) *bool {
	return &b
}

// Catalog is one snapshot of the upstream model list.
type Catalog struct {
	Models    []ModelRecord `json:"models"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Stale     bool          `json:"stale,omitempty"` // Served from the last good copy after an upstream failure
}

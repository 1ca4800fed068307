package placeholder

import (
	"sort"

	"github.com/dpshade/spark-prompt/internal/models"
)

// Entry is one value in the override store
type Entry struct {
	Value string
	// Default marks values written by PopulateDefaults rather than chosen by the user
	Default bool
}

// Overrides maps occurrence identities to chosen values. It is immutable:
// every update returns a new store. The zero value is an empty store.
type Overrides struct {
	entries map[string]Entry
}

// NewOverrides returns an empty store
func NewOverrides() Overrides {
	return Overrides{}
}

// OverridesFromMap builds a store of user selections
func OverridesFromMap(values map[string]string) Overrides {
	if len(values) == 0 {
		return Overrides{}
	}
	entries := make(map[string]Entry, len(values))
	for id, v := range values {
		entries[id] = Entry{Value: v}
	}
	return Overrides{entries: entries}
}

// Get returns the value stored for identity
func (o Overrides) Get(identity string) (string, bool) {
	e, ok := o.entries[identity]
	return e.Value, ok
}

// Entry returns the full entry stored for identity
func (o Overrides) Entry(identity string) (Entry, bool) {
	e, ok := o.entries[identity]
	return e, ok
}

// Len returns the number of entries
func (o Overrides) Len() int {
	return len(o.entries)
}

// Identities returns the stored identities in sorted order
func (o Overrides) Identities() []string {
	ids := make([]string, 0, len(o.entries))
	for id := range o.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Map returns a copy of the stored values
func (o Overrides) Map() map[string]string {
	out := make(map[string]string, len(o.entries))
	for id, e := range o.entries {
		out[id] = e.Value
	}
	return out
}

// Selections returns a copy of the user-chosen values only
func (o Overrides) Selections() map[string]string {
	out := make(map[string]string)
	for id, e := range o.entries {
		if !e.Default {
			out[id] = e.Value
		}
	}
	return out
}

func (o Overrides) clone(extra int) map[string]Entry {
	entries := make(map[string]Entry, len(o.entries)+extra)
	for id, e := range o.entries {
		entries[id] = e
	}
	return entries
}

// SetOverride returns a copy of store with identity set to a user-chosen value
func SetOverride(store Overrides, identity, value string) Overrides {
	entries := store.clone(1)
	entries[identity] = Entry{Value: value}
	return Overrides{entries: entries}
}

// ClearOverride returns a copy of store without identity
func ClearOverride(store Overrides, identity string) Overrides {
	if _, ok := store.entries[identity]; !ok {
		return store
	}
	entries := store.clone(0)
	delete(entries, identity)
	return Overrides{entries: entries}
}

// PopulateDefaults writes the bank default of every occurrence in content
// that has no entry yet. Existing entries are never touched and occurrences
// without a bank value get no entry.
func PopulateDefaults(content, locale string, banks models.BankMap, store Overrides) Overrides {
	var entries map[string]Entry
	for _, occ := range Occurrences(content) {
		id := occ.Identity()
		if _, ok := store.entries[id]; ok {
			continue
		}
		v, ok := BankDefault(occ.Key, locale, banks)
		if !ok {
			continue
		}
		if entries == nil {
			entries = store.clone(4)
		}
		entries[id] = Entry{Value: v, Default: true}
	}
	if entries == nil {
		return store
	}
	return Overrides{entries: entries}
}

// RefreshDefaults drops every default entry and populates again, so defaults
// follow the current locale and banks while user selections are kept.
func RefreshDefaults(content, locale string, banks models.BankMap, store Overrides) Overrides {
	entries := make(map[string]Entry, len(store.entries))
	for id, e := range store.entries {
		if !e.Default {
			entries[id] = e
		}
	}
	return PopulateDefaults(content, locale, banks, Overrides{entries: entries})
}

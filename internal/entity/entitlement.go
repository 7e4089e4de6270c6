package entity

import "sort"

// Entitlement is either the full plan or an explicit set of deliverable keys.
// The zero value grants nothing.
type Entitlement struct {
	full bool
	keys map[string]struct{}
}

func FullPlan() Entitlement {
	return Entitlement{full: true}
}

// Deliverables builds a partial entitlement. With no keys it grants nothing.
func Deliverables(keys ...string) Entitlement {
	e := Entitlement{keys: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		e.keys[key] = struct{}{}
	}
	return e
}

func (e Entitlement) IsFull() bool {
	return e.full
}

func (e Entitlement) IsEmpty() bool {
	return !e.full && len(e.keys) == 0
}

func (e Entitlement) Has(key string) bool {
	if e.full {
		return true
	}
	_, ok := e.keys[key]
	return ok
}

// Keys is sorted and nil for a full-plan entitlement.
func (e Entitlement) Keys() []string {
	if e.full {
		return nil
	}
	keys := make([]string, 0, len(e.keys))
	for key := range e.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (e Entitlement) Union(other Entitlement) Entitlement {
	if e.full || other.full {
		return FullPlan()
	}
	merged := Deliverables(e.Keys()...)
	for key := range other.keys {
		merged.keys[key] = struct{}{}
	}
	return merged
}

// Missing returns the keys from wanted that e does not grant.
func (e Entitlement) Missing(wanted []string) []string {
	var missing []string
	for _, key := range wanted {
		if !e.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

func (e Entitlement) Equal(other Entitlement) bool {
	if e.full != other.full {
		return false
	}
	if len(e.keys) != len(other.keys) {
		return false
	}
	for key := range e.keys {
		if _, ok := other.keys[key]; !ok {
			return false
		}
	}
	return true
}

func (e Entitlement) String() string {
	if e.full {
		return "full plan"
	}
	if len(e.keys) == 0 {
		return "none"
	}
	out := ""
	for i, key := range e.Keys() {
		if i > 0 {
			out += ", "
		}
		out += key
	}
	return out
}

// DeriveEntitlement unions the selections of every completed purchase.
func DeriveEntitlement(purchases []*Purchase) Entitlement {
	var ent Entitlement
	for _, p := range purchases {
		if p == nil || !p.IsCompleted() {
			continue
		}
		ent = ent.Union(p.Selection)
	}
	return ent
}

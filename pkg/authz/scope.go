package authz

import "sort"

// Action is the operation a scope was computed for.
type Action string

const (
	ActionRead   Action = "READ"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// ResourceType names the catalog resource kind a scope covers.
type ResourceType string

const (
	ResourceTypeProject ResourceType = "PROJECT"
	ResourceTypeDataset ResourceType = "DATASET"
)

// Scope is the immutable result of one authorization resolution. The
// zero value is a restricted scope over nothing, which is the safe
// default: it matches no resources.
type Scope struct {
	action       Action
	unrestricted bool
	ids          []string
}

// Unrestricted returns a scope that contributes no filter.
func Unrestricted(action Action) Scope {
	return Scope{action: action, unrestricted: true}
}

// RestrictedTo returns a scope over the given ids, deduplicated and
// sorted so equal id sets compare equal.
func RestrictedTo(action Action, ids []string) Scope {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)
	return Scope{action: action, ids: uniq}
}

// Action returns the action the scope was computed for.
func (s Scope) Action() Action {
	return s.action
}

// IsUnrestricted reports whether the scope contributes no filter.
func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// Empty reports whether a restricted scope covers no resources. An
// empty scope must short-circuit to an empty result, never be treated
// as "no filter".
func (s Scope) Empty() bool {
	return !s.unrestricted && len(s.ids) == 0
}

// IDs returns a copy of the restricted id set.
func (s Scope) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Contains reports whether the scope covers the given id.
func (s Scope) Contains(id string) bool {
	if s.unrestricted {
		return true
	}
	at := sort.SearchStrings(s.ids, id)
	return at < len(s.ids) && s.ids[at] == id
}

// Intersect narrows the scope to ids also present in the hint. An
// unrestricted scope narrows to exactly the hint.
func (s Scope) Intersect(hint []string) Scope {
	if s.unrestricted {
		return RestrictedTo(s.action, hint)
	}
	kept := make([]string, 0, len(hint))
	for _, id := range hint {
		if s.Contains(id) {
			kept = append(kept, id)
		}
	}
	return RestrictedTo(s.action, kept)
}

package auth

import (
	"sort"
	"strings"
)

// Recognized claim types. Policies reference only these; anything else a
// token carries lands in the Extra escape hatch.
const (
	ClaimSubject        = "sub"
	ClaimName           = "name"
	ClaimPermission     = "permission"
	ClaimEmailConfirmed = "email_confirmed"
)

// ClaimSet is the strongly-typed view of a token's claims. Permission is
// multi-valued; EmailConfirmed keeps the canonical "true"/"false" string so
// policy clauses compare plain strings throughout.
type ClaimSet struct {
	Subject        string
	Name           string
	Permissions    []string
	EmailConfirmed string
	Extra          map[string]string
}

// Has reports whether the claim set carries the (type, value) pair. For the
// permission claim the value is matched against the whole set.
func (c ClaimSet) Has(claimType, value string) bool {
	switch claimType {
	case ClaimPermission:
		for _, p := range c.Permissions {
			if p == value {
				return true
			}
		}
		return false
	default:
		got, ok := c.value(claimType)
		return ok && got == value
	}
}

// HasType reports whether the claim type is present with any value.
func (c ClaimSet) HasType(claimType string) bool {
	if claimType == ClaimPermission {
		return len(c.Permissions) > 0
	}
	_, ok := c.value(claimType)
	return ok
}

func (c ClaimSet) value(claimType string) (string, bool) {
	switch claimType {
	case ClaimSubject:
		return c.Subject, c.Subject != ""
	case ClaimName:
		return c.Name, c.Name != ""
	case ClaimEmailConfirmed:
		return c.EmailConfirmed, c.EmailConfirmed != ""
	default:
		v, ok := c.Extra[claimType]
		return v, ok && v != ""
	}
}

// Augmenter contributes one derived claim to a claim set. Issuance composes
// an ordered pipeline of augmenters instead of subclassing a claims factory.
type Augmenter func(ClaimSet) ClaimSet

// Augment applies the augmenters in order and returns the final claim set.
func Augment(base ClaimSet, augs ...Augmenter) ClaimSet {
	cs := base
	for _, aug := range augs {
		if aug == nil {
			continue
		}
		cs = aug(cs)
	}
	return cs
}

// WithPermissions returns an augmenter that merges the given permission
// claims, deduplicated and sorted for a stable token payload.
func WithPermissions(perms []string) Augmenter {
	return func(cs ClaimSet) ClaimSet {
		seen := make(map[string]struct{}, len(cs.Permissions)+len(perms))
		merged := make([]string, 0, len(cs.Permissions)+len(perms))
		for _, p := range append(append([]string{}, cs.Permissions...), perms...) {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
		sort.Strings(merged)
		cs.Permissions = merged
		return cs
	}
}

// WithEmailConfirmed returns an augmenter setting the email_confirmed claim
// to its canonical string form.
func WithEmailConfirmed(confirmed bool) Augmenter {
	return func(cs ClaimSet) ClaimSet {
		if confirmed {
			cs.EmailConfirmed = "true"
		} else {
			cs.EmailConfirmed = "false"
		}
		return cs
	}
}

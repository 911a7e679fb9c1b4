package auth

// Permission claim values gating the catalog surface.
const (
	PermMoviesRead  = "movies:read"
	PermMoviesWrite = "movies:write"
)

// Named policies registered in this service.
const (
	PolicyAuthenticated  = "Authenticated"
	PolicyEmailConfirmed = "EmailConfirmed"
	PolicyMoviesRead     = "MoviesRead"
	PolicyMoviesWrite    = "MoviesWrite"
)

// Clause is one claim requirement. AnyValue requires the claim type to be
// present regardless of its value.
type Clause struct {
	Type     string
	Value    string
	AnyValue bool
}

// Policy is a declarative conjunction of claim requirements. Evaluation is
// pure: Allow iff every clause is satisfied; an absent claim is a plain
// deny, never an error.
type Policy struct {
	Name    string
	Clauses []Clause
}

// Evaluate reports whether the claim set satisfies every clause.
func (p Policy) Evaluate(cs ClaimSet) bool {
	for _, clause := range p.Clauses {
		if clause.AnyValue {
			if !cs.HasType(clause.Type) {
				return false
			}
			continue
		}
		if !cs.Has(clause.Type, clause.Value) {
			return false
		}
	}
	return true
}

var policies = map[string]Policy{
	PolicyAuthenticated: {
		Name:    PolicyAuthenticated,
		Clauses: []Clause{{Type: ClaimSubject, AnyValue: true}},
	},
	PolicyEmailConfirmed: {
		Name:    PolicyEmailConfirmed,
		Clauses: []Clause{{Type: ClaimEmailConfirmed, Value: "true"}},
	},
	PolicyMoviesRead: {
		Name:    PolicyMoviesRead,
		Clauses: []Clause{{Type: ClaimPermission, Value: PermMoviesRead}},
	},
	PolicyMoviesWrite: {
		Name:    PolicyMoviesWrite,
		Clauses: []Clause{{Type: ClaimPermission, Value: PermMoviesWrite}},
	},
}

// Lookup returns a registered policy by name.
func Lookup(name string) (Policy, bool) {
	p, ok := policies[name]
	return p, ok
}

// Evaluate runs the named policy against the claim set. Unknown policy
// names deny.
func Evaluate(name string, cs ClaimSet) bool {
	p, ok := Lookup(name)
	if !ok {
		return false
	}
	return p.Evaluate(cs)
}

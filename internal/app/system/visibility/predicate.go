// Package visibility decides which groups and events a caller may discover.
//
// The composer returns a Predicate, a small algebra of storage-agnostic terms
// that a store adapter (see store/queries/visibilityqueries) translates into
// its own query dialect. Eval interprets the same algebra in memory.
package visibility

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Predicate is one of Always, Never, VisibleFlag, HasMembership, And, Or or
// ParentGroup.
type Predicate interface {
	predicate()
}

// Always matches every row.
type Always struct{}

// Never matches no row.
type Never struct{}

// VisibleFlag matches rows whose own visible flag is set.
type VisibleFlag struct{}

// HasMembership matches rows belonging to a group UserID is a member of.
// For groups that is the group itself; for events it is the parent group.
type HasMembership struct {
	UserID primitive.ObjectID
}

// And matches when every term matches. An empty And matches everything.
type And struct {
	Terms []Predicate
}

// Or matches when any term matches. An empty Or matches nothing.
type Or struct {
	Terms []Predicate
}

// ParentGroup applies a group predicate to an event's parent group.
type ParentGroup struct {
	Group Predicate
}

func (Always) predicate()        {}
func (Never) predicate()         {}
func (VisibleFlag) predicate()   {}
func (HasMembership) predicate() {}
func (And) predicate()           {}
func (Or) predicate()            {}
func (ParentGroup) predicate()   {}

// AllOf builds an And, dropping Always terms and collapsing to Never when any
// term is Never.
func AllOf(terms ...Predicate) Predicate {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.(type) {
		case nil, Always:
			continue
		case Never:
			return Never{}
		}
		out = append(out, t)
	}
	switch len(out) {
	case 0:
		return Always{}
	case 1:
		return out[0]
	}
	return And{Terms: out}
}

// AnyOf builds an Or, dropping Never terms and collapsing to Always when any
// term is Always.
func AnyOf(terms ...Predicate) Predicate {
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.(type) {
		case nil, Never:
			continue
		case Always:
			return Always{}
		}
		out = append(out, t)
	}
	switch len(out) {
	case 0:
		return Never{}
	case 1:
		return out[0]
	}
	return Or{Terms: out}
}

// InParentGroup wraps g so it applies to an event's group. Constant
// predicates pass through unchanged.
func InParentGroup(g Predicate) Predicate {
	switch g.(type) {
	case Always, Never:
		return g
	}
	return ParentGroup{Group: g}
}

// Subject is the minimal view of a group or event needed by Eval.
//
// For a group, Members holds the group's member ids and Parent is nil. For an
// event, Visible is the event's flag, Members holds the parent group's member
// ids and Parent describes the parent group.
type Subject struct {
	Visible bool
	Members map[primitive.ObjectID]bool
	Parent  *Subject
}

// Eval reports whether p matches s. A ParentGroup term against a subject
// without a Parent does not match.
func Eval(p Predicate, s Subject) bool {
	switch v := p.(type) {
	case Always:
		return true
	case Never:
		return false
	case VisibleFlag:
		return s.Visible
	case HasMembership:
		return s.Members[v.UserID]
	case And:
		for _, t := range v.Terms {
			if !Eval(t, s) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range v.Terms {
			if Eval(t, s) {
				return true
			}
		}
		return false
	case ParentGroup:
		if s.Parent == nil {
			return false
		}
		return Eval(v.Group, *s.Parent)
	}
	return false
}

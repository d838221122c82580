package acl

import "time"

// Predicate is one node of a boolean clause tree over a catalog entity.
// Implementations are plain data so a compilation step can lower them into
// the persistence layer's native filter syntax.
type Predicate interface {
	isPredicate()
}

// MatchAll imposes no restriction.
type MatchAll struct{}

// MatchNone matches nothing. The deny-all predicate.
type MatchNone struct{}

// And requires every sub-predicate to hold. An empty And matches all.
type And struct {
	Preds []Predicate
}

// Or requires at least one sub-predicate to hold. An empty Or matches none.
type Or struct {
	Preds []Predicate
}

// ColumnEquals requires a column to equal a literal value.
type ColumnEquals struct {
	Column string
	Value  any
}

// ColumnInSet requires a column's value to be a member of IDs. An empty set
// matches nothing.
type ColumnInSet struct {
	Column string
	IDs    []int64
}

// ColumnAtLeast is a lower bound: column >= value.
type ColumnAtLeast struct {
	Column string
	Value  any
}

// ColumnAtMost is an upper bound: column <= value.
type ColumnAtMost struct {
	Column string
	Value  any
}

// ColumnIsNull requires a column to be NULL.
type ColumnIsNull struct {
	Column string
}

// ColumnNotNull requires a column to be non-NULL.
type ColumnNotNull struct {
	Column string
}

// ColumnLike requires a case-insensitive substring match on a text column.
type ColumnLike struct {
	Column string
	Text   string
}

// DateBetween requires a timestamp column to fall inside [From, To]
// inclusive. NULL values do not match.
type DateBetween struct {
	Column string
	From   time.Time
	To     time.Time
}

// Exists requires (or, negated, forbids) a related row. Join references the
// outer query's alias, e.g. "f.photo_id = p.id". Where further restricts the
// related rows and may be nil.
type Exists struct {
	Negated bool
	Table   string
	Alias   string
	Join    string
	Where   Predicate
}

func (MatchAll) isPredicate()      {}
func (MatchNone) isPredicate()     {}
func (And) isPredicate()           {}
func (Or) isPredicate()            {}
func (ColumnEquals) isPredicate()  {}
func (ColumnInSet) isPredicate()   {}
func (ColumnAtLeast) isPredicate() {}
func (ColumnAtMost) isPredicate()  {}
func (ColumnIsNull) isPredicate()  {}
func (ColumnNotNull) isPredicate() {}
func (ColumnLike) isPredicate()    {}
func (DateBetween) isPredicate()   {}
func (Exists) isPredicate()        {}

// AndOf builds a conjunction, flattening the trivial cases: MatchAll
// operands are dropped and a MatchNone operand collapses the whole
// conjunction.
func AndOf(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		switch p.(type) {
		case MatchAll:
			continue
		case MatchNone:
			return MatchNone{}
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return MatchAll{}
	case 1:
		return kept[0]
	}
	return And{Preds: kept}
}

// OrOf builds a disjunction, dropping MatchNone operands and collapsing on
// MatchAll.
func OrOf(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		switch p.(type) {
		case MatchNone:
			continue
		case MatchAll:
			return MatchAll{}
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return MatchNone{}
	case 1:
		return kept[0]
	}
	return Or{Preds: kept}
}

package filter

import "strings"

type Join string

const (
	JoinUser        Join = "INNER JOIN users ON users.account_id = accounts.id"
	JoinAccountStat Join = "INNER JOIN account_stats ON account_stats.account_id = accounts.id"
)

// Scope is a composable predicate over the accounts table. Merging two scopes
// narrows the result: joins are unioned and conditions are ANDed.
type Scope struct {
	joins []Join
	conds []string
	args  []interface{}
	none  bool
}

// None is a scope that matches no rows.
func None() Scope {
	return Scope{none: true}
}

func Where(cond string, args ...interface{}) Scope {
	return Scope{conds: []string{cond}, args: args}
}

func Joins(join Join) Scope {
	return Scope{joins: []Join{join}}
}

func (s Scope) Where(cond string, args ...interface{}) Scope {
	return s.Merge(Where(cond, args...))
}

func (s Scope) Merge(other Scope) Scope {
	merged := Scope{
		joins: make([]Join, 0, len(s.joins)+len(other.joins)),
		conds: make([]string, 0, len(s.conds)+len(other.conds)),
		args:  make([]interface{}, 0, len(s.args)+len(other.args)),
		none:  s.none || other.none,
	}
	for _, join := range append(append([]Join{}, s.joins...), other.joins...) {
		if !merged.hasJoin(join) {
			merged.joins = append(merged.joins, join)
		}
	}
	merged.conds = append(append(merged.conds, s.conds...), other.conds...)
	merged.args = append(append(merged.args, s.args...), other.args...)
	return merged
}

func (s Scope) IsNone() bool {
	return s.none
}

func (s Scope) Joins() []Join {
	return append([]Join{}, s.joins...)
}

func (s Scope) hasJoin(join Join) bool {
	for _, j := range s.joins {
		if j == join {
			return true
		}
	}
	return false
}

// From renders the join clause, e.g. "accounts INNER JOIN users ON ...".
func (s Scope) From() string {
	sb := strings.Builder{}
	sb.WriteString("accounts")
	for _, join := range s.joins {
		sb.WriteRune(' ')
		sb.WriteString(string(join))
	}
	return sb.String()
}

// Condition renders the WHERE expression and its bind arguments. An empty
// scope renders "1 = 1", a none scope "1 = 0".
func (s Scope) Condition() (string, []interface{}) {
	if s.none {
		return "1 = 0", nil
	}
	if len(s.conds) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, len(s.conds))
	for i, cond := range s.conds {
		parts[i] = "(" + cond + ")"
	}
	return strings.Join(parts, " AND "), append([]interface{}{}, s.args...)
}

package filter

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultPageSize = 40

// AccountFilter turns the query parameters of the admin account listing into
// a Scope. It is built per request and not reused.
type AccountFilter struct {
	params map[string]string
}

func NewAccountFilter(params map[string]string) *AccountFilter {
	normalized := make(map[string]string, len(params)+2)
	for key, value := range params {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		normalized[key] = value
	}

	if !present(normalized, KeyRemote) {
		normalized[string(KeyLocal)] = "1"
	}
	if !present(normalized, KeySuspended) && !present(normalized, KeySilenced) && !present(normalized, KeyPending) {
		normalized[string(KeyActive)] = "1"
	}

	return &AccountFilter{normalized}
}

func present(params map[string]string, key FilterKey) bool {
	_, ok := params[string(key)]
	return ok
}

// Params returns the effective parameters, defaults included.
func (f *AccountFilter) Params() map[string]string {
	params := make(map[string]string, len(f.params))
	for k, v := range f.params {
		params[k] = v
	}
	return params
}

// Scope composes one scope per parameter. Keys are applied in sorted order so
// the rendered SQL is stable.
func (f *AccountFilter) Scope() (Scope, error) {
	names := make([]string, 0, len(f.params))
	for name := range f.params {
		names = append(names, name)
	}
	sort.Strings(names)

	scope := Scope{}
	for _, name := range names {
		key, err := ParseFilterKey(name)
		if err != nil {
			return Scope{}, err
		}
		scope = scope.Merge(key.Scope(f.params[name]))
	}
	return scope, nil
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SQL renders a select over accounts for scope, most recent first.
func SQL(scope Scope, page Page) (string, []interface{}) {
	page = page.normalize()
	cond, args := scope.Condition()
	query := fmt.Sprintf("SELECT accounts.* FROM %s WHERE %s ORDER BY accounts.created_at DESC, accounts.id DESC LIMIT ? OFFSET ?",
		scope.From(), cond)
	return query, append(args, page.Limit, page.Offset)
}

// Package query validates a paginate request against a registry so both
// backends reject the same inputs and apply the same ordering rules.
package query

import (
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Plan is a validated paginate request.
type Plan struct {
	Page types.Pagination
	// Keys holds the requested sort keys followed by the ascending id
	// tie-break.
	Keys     []types.SortKey
	SearchBy []string
	Search   string
}

// Searching reports whether rows are filtered.
func (p Plan) Searching() bool {
	return p.Search != "" && len(p.SearchBy) > 0
}

// Prepare validates page and q against reg.
func Prepare(reg *schema.Registry, page types.Pagination, q types.PageQuery) (Plan, error) {
	if err := page.Validate(); err != nil {
		return Plan{}, err
	}
	keys, err := types.ParseSorting(q.Sorting)
	if err != nil {
		return Plan{}, err
	}
	for _, k := range keys {
		if err := known(reg, k.Field); err != nil {
			return Plan{}, err
		}
	}
	keys = append(keys, types.SortKey{Field: schema.IDColumn})

	p := Plan{Page: page, Keys: keys}
	if q.Searching() {
		for _, f := range q.SearchBy {
			if err := searchable(reg, f); err != nil {
				return Plan{}, err
			}
		}
		p.SearchBy = q.SearchBy
		p.Search = q.Search
	}
	return p, nil
}

func known(reg *schema.Registry, field string) error {
	if len(reg.Owners(field)) == 0 {
		return fmt.Errorf("%w: %q", types.ErrUnknownField, field)
	}
	return nil
}

// searchable accepts columns whose text form every backend renders the same
// way: text, integers, uuids and the discriminator. Floats and bools print
// differently per engine, so they are refused.
func searchable(reg *schema.Registry, field string) error {
	if err := known(reg, field); err != nil {
		return err
	}
	for _, e := range reg.Owners(field) {
		f, ok := e.ReadLayout.Field(field)
		if !ok {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Float32, reflect.Float64, reflect.Bool:
			return fmt.Errorf("%w: %q cannot be searched", types.ErrUnknownField, field)
		}
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/repokit/internal/sample"
	"github.com/mesh-intelligence/repokit/pkg/schema"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// listing is the JSON form of a page.
type listing struct {
	Count   int               `json:"count"`
	Objects []json.RawMessage `json:"objects"`
}

func encodeAll(models []sample.Model) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(models))
	for i, m := range models {
		raw, err := sample.Encode(m)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// line renders a model as "<type> <id> column=value ...".
func line(m sample.Model) string {
	e, err := sample.Registry.Lookup(m.ModelKind())
	if err != nil {
		return fmt.Sprintf("%s %s", m.ModelKind(), m.ModelID())
	}
	values := e.ReadLayout.Values(m)
	parts := []string{m.ModelKind(), m.ModelID().String()}
	for _, col := range e.ReadLayout.Columns() {
		if col == schema.IDColumn {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", col, schema.Text(values[col])))
	}
	return strings.Join(parts, " ")
}

// printModel writes one model.
func (a *app) printModel(w io.Writer, m sample.Model) error {
	if !a.flags.jsonMode {
		_, err := fmt.Fprintln(w, line(m))
		return err
	}
	raw, err := sample.Encode(m)
	if err != nil {
		return sysError(err)
	}
	return writeJSON(w, raw)
}

// printModels writes models as a JSON array or one line each.
func (a *app) printModels(w io.Writer, models []sample.Model) error {
	if a.flags.jsonMode {
		raw, err := encodeAll(models)
		if err != nil {
			return sysError(err)
		}
		return writeJSON(w, raw)
	}
	for _, m := range models {
		if _, err := fmt.Fprintln(w, line(m)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printPage(w io.Writer, page types.Pagination, res types.PaginationResult[sample.Model]) error {
	if a.flags.jsonMode {
		raw, err := encodeAll(res.Objects)
		if err != nil {
			return sysError(err)
		}
		return writeJSON(w, listing{Count: res.Count, Objects: raw})
	}
	if err := a.printModels(w, res.Objects); err != nil {
		return err
	}
	first := min(page.Offset, res.Count)
	last := first + len(res.Objects)
	if len(res.Objects) > 0 {
		first++
	}
	_, err := fmt.Fprintf(w, "%d-%d of %d\n", first, last, res.Count)
	return err
}

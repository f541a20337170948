package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repokit/internal/sample"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, userError(fmt.Errorf("invalid id %q: %w", arg, err))
		}
		ids[i] = id
	}
	return ids, nil
}

// readPayload returns the JSON argument, or stdin when it is absent or "-".
// It reports whether the payload is an array.
func readPayload(cmd *cobra.Command, args []string) ([]json.RawMessage, bool, error) {
	var data []byte
	if len(args) == 0 || args[0] == "-" {
		var err error
		if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return nil, false, sysError(fmt.Errorf("read stdin: %w", err))
		}
	} else {
		data = []byte(args[0])
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, userError(errors.New("empty payload"))
	}
	if data[0] != '[' {
		return []json.RawMessage{data}, false, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, userError(fmt.Errorf("decoding payload: %w", err))
	}
	return items, true, nil
}

func decodeCreates(items []json.RawMessage, needID bool) ([]sample.Create, error) {
	out := make([]sample.Create, len(items))
	for i, item := range items {
		c, err := sample.DecodeCreate(item)
		if err != nil {
			return nil, userError(err)
		}
		if c.ModelID() == uuid.Nil {
			if needID {
				return nil, userError(fmt.Errorf("payload %d has no id", i))
			}
			id, err := uuid.NewV7()
			if err != nil {
				return nil, sysError(fmt.Errorf("generate id: %w", err))
			}
			c = sample.WithID(c, id)
		}
		out[i] = c
	}
	return out, nil
}

func decodeUpdates(items []json.RawMessage) ([]sample.Update, error) {
	out := make([]sample.Update, len(items))
	for i, item := range items {
		u, err := sample.DecodeUpdate(item)
		if err != nil {
			return nil, userError(err)
		}
		if u.ModelID() == uuid.Nil {
			return nil, userError(fmt.Errorf("payload %d has no id", i))
		}
		out[i] = u
	}
	return out, nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>...",
		Short: "Get models by id",
		Long: "Get prints the models with the given ids. With one id a missing model is\n" +
			"an error; with several, every id must exist.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				if len(ids) == 1 {
					m, err := repo.Get(ctx, ids[0])
					if err != nil {
						return err
					}
					return a.printModel(cmd.OutOrStdout(), m)
				}
				ms, err := repo.GetByIDs(ctx, ids, true)
				if err != nil {
					return err
				}
				return a.printModels(cmd.OutOrStdout(), ms)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		page  types.Pagination
		query types.PageQuery
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of models",
		Long: `List sorts, filters and slices the stored models.

Sort keys are column names; prefix one with "-" to sort it descending. Ties
are broken by id. --search keeps models whose --search-by columns contain the
text; the count covers every match, not only the page. Float and bool
columns cannot be searched.

Example:
  repokit list --sort str_column,-int_column --limit 10
  repokit list --search-by str_column --search 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				res, err := repo.Paginate(ctx, page, query)
				if err != nil {
					return err
				}
				return a.printPage(cmd.OutOrStdout(), page, res)
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&page.Limit, "limit", 20, "maximum number of models")
	f.IntVar(&page.Offset, "offset", 0, "number of models to skip")
	f.StringSliceVar(&query.Sorting, "sort", nil, "sort keys, comma separated")
	f.StringSliceVar(&query.SearchBy, "search-by", nil, "columns searched, comma separated")
	f.StringVar(&query.Search, "search", "", "text the searched columns must contain")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create [json|-]",
		Short: "Create models from JSON",
		Long: `Create inserts the model described by a JSON object whose "type" member
names its kind. An array creates every model or none. A missing id is
generated. The payload is read from stdin when the argument is absent or "-".

Example:
  repokit create '{"type":"child_a","str_column":"a","int_column":1,"float_column":0.5}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, many, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			cs, err := decodeCreates(items, false)
			if err != nil {
				return err
			}
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				if !many {
					m, err := repo.Create(ctx, cs[0])
					if err != nil {
						return err
					}
					return a.printModel(cmd.OutOrStdout(), m)
				}
				ms, err := repo.BulkCreate(ctx, cs)
				if err != nil {
					return err
				}
				return a.printModels(cmd.OutOrStdout(), ms)
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update [json|-]",
		Short: "Update models from JSON",
		Long: `Update changes the members present in a JSON object; common columns left
out keep their stored value. The "type" member must be the stored kind or
"parent". An array applies every update or none.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, many, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			us, err := decodeUpdates(items)
			if err != nil {
				return err
			}
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				if !many {
					m, err := repo.Update(ctx, us[0])
					if err != nil {
						return err
					}
					return a.printModel(cmd.OutOrStdout(), m)
				}
				ms, err := repo.BulkUpdate(ctx, us)
				if err != nil {
					return err
				}
				return a.printModels(cmd.OutOrStdout(), ms)
			})
		},
	}
}

func newUpsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upsert [json|-]",
		Short: "Create or overwrite a model from JSON",
		Long: `Upsert creates the model when its id is free and otherwise overwrites the
stored model's columns. The id is required and the kind of a stored model
cannot change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, many, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			if many {
				return userError(errors.New("upsert takes a single object"))
			}
			cs, err := decodeCreates(items, true)
			if err != nil {
				return err
			}
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				m, err := repo.Upsert(ctx, cs[0])
				if err != nil {
					return err
				}
				return a.printModel(cmd.OutOrStdout(), m)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete models by id",
		Long:  "Delete removes the models with the given ids. Unknown ids are ignored.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.withRepo(cmd, func(ctx context.Context, repo sampleRepo) error {
				if err := repo.Delete(ctx, ids); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": ids})
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %d id(s)\n", len(ids))
				return err
			})
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/services/finance"
	"github.com/dekarrin/sms/services/setup"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write default data into any empty default collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				res, err := setup.NewService(store, a.log).SeedDefaults(cmd.Context())
				if err != nil {
					return err
				}

				seeded := res.Seeded()
				if len(seeded) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to seed; all default collections already have data")
					return nil
				}
				sort.Strings(seeded)
				for _, t := range seeded {
					fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\n", t)
				}
				return nil
			})
		},
	}
}

func (a *app) typesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the entity types that have stored data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				types, err := store.EntityTypes(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tKEY\tRECORDS\tSIZE")
				for _, t := range types {
					st, err := store.Stat(cmd.Context(), t)
					if err != nil {
						return err
					}
					count := humanize.Comma(int64(st.Count))
					if st.Corrupt {
						count = "corrupt"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.EntityType, st.Key, count, humanize.Bytes(uint64(st.Bytes)))
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "Print the records of an entity type as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseWhere(where)
			if err != nil {
				return err
			}
			return a.withStore(func(store *entity.Store) error {
				recs, err := store.Query(cmd.Context(), args[0], filter)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Only list records where `FIELD=VALUE`; may be repeated")

	return cmd
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE ID",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				rec, err := store.GetByID(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func (a *app) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create TYPE JSON",
		Short: "Create a record from a JSON object; give - to read it from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return a.withStore(func(store *entity.Store) error {
				created, err := store.Create(cmd.Context(), args[0], rec)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
}

func (a *app) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update TYPE ID JSON",
		Short: "Merge a JSON object into a record; give - to read it from stdin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := readRecord(cmd.InOrStdin(), args[2])
			if err != nil {
				return err
			}
			return a.withStore(func(store *entity.Store) error {
				updated, err := store.Update(cmd.Context(), args[0], args[1], patch)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), updated)
			})
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TYPE ID...",
		Short: "Delete records by ID",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				if len(args) == 2 {
					res, err := store.Delete(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), res)
				}

				res, err := store.DeleteMany(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func (a *app) clearCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear TYPE | --all",
		Short: "Remove a whole collection, or every collection with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				if all {
					if err := store.ClearAll(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Cleared all collections")
					return nil
				}

				if err := store.Clear(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every collection under the configured key prefix")

	return cmd
}

func (a *app) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print summary reports",
	}

	var from, to string
	financeCmd := &cobra.Command{
		Use:   "finance",
		Short: "Total income and expenses, optionally between two dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *entity.Store) error {
				sum, err := finance.NewService(store, a.log).Summary(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				return writeSummary(cmd.OutOrStdout(), sum)
			})
		},
	}
	financeCmd.Flags().StringVar(&from, "from", "", "First `DATE` (YYYY-MM-DD) to include")
	financeCmd.Flags().StringVar(&to, "to", "", "Last `DATE` (YYYY-MM-DD) to include")

	cmd.AddCommand(financeCmd)
	return cmd
}

func writeSummary(w io.Writer, sum finance.Summary) error {
	period := "all time"
	switch {
	case sum.From != "" && sum.To != "":
		period = sum.From + " to " + sum.To
	case sum.From != "":
		period = "since " + sum.From
	case sum.To != "":
		period = "up to " + sum.To
	}

	money := func(v float64) string { return humanize.CommafWithDigits(v, 2) }

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Period:\t%s\n", period)
	fmt.Fprintf(tw, "Transactions:\t%s\n", humanize.Comma(int64(sum.Count)))
	fmt.Fprintf(tw, "Income:\t%s\n", money(sum.Income))
	fmt.Fprintf(tw, "Expenses:\t%s\n", money(sum.Expenses))
	fmt.Fprintf(tw, "Net:\t%s\n", money(sum.Net))

	cats := make([]string, 0, len(sum.ByCategory))
	for c := range sum.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(tw, "  %s:\t%s\n", c, money(sum.ByCategory[c]))
	}
	return tw.Flush()
}

// parseWhere turns FIELD=VALUE expressions into an equality filter. VALUE is
// read as JSON if it parses as JSON, and as a plain string otherwise, so
// status=active and amount=500 both do what is expected. No expressions gives
// a nil filter, which matches everything.
func parseWhere(exprs []string) (entity.Filter, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	where := entity.Where{}
	for _, expr := range exprs {
		field, raw, ok := strings.Cut(expr, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, sms.NewError(fmt.Sprintf("--where %q: must be in FIELD=VALUE form", expr), sms.ErrBadArgument)
		}

		var val any
		if err := json.Unmarshal([]byte(raw), &val); err != nil {
			val = raw
		}
		where[field] = entity.Equals(val)
	}
	return where, nil
}

// readRecord decodes arg as a JSON object, reading it from r if arg is "-".
func readRecord(r io.Reader, arg string) (entity.Record, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}

	var rec entity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, sms.NewError(fmt.Sprintf("record is not a JSON object: %s", err.Error()), sms.ErrBadArgument)
	}
	if rec == nil {
		return nil, sms.NewError("record is not a JSON object", sms.ErrBadArgument)
	}
	return rec, nil
}

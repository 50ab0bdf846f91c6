package cli

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"idsearch/internal/core"
	"idsearch/internal/loader"
	"idsearch/internal/report"
)

func (a *app) warn(res core.Result) {
	for _, v := range res.Violations {
		a.logger.Warn().Str("rule", v.Rule).Str("entity", string(v.Entity)).Str("id", v.EntityID).Msg(v.Message)
	}
}

func newInitDBCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the registry schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info().Str("driver", string(a.storage.Driver)).Msg("database initialised")
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized the database.")
			return nil
		},
	}
}

func newLoadDataCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load-data PATH...",
		Short: "Import centers and participants from YAML fixtures",
		Long:  "Import centers and participants from YAML fixture files. A directory loads every .yaml and .yml file it contains in name order. The import is atomic.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loader.LoadFiles(args...)
			if err != nil {
				return err
			}
			summary, res, err := a.svc.Import(cmd.Context(), ds)
			a.warn(res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d centers, %d participants, %d aliases, %d samples.\n",
				summary.Centers, summary.Participants, summary.Aliases, summary.Samples)
			return nil
		},
	}
}

func newCentersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "centers",
		Short: "List registering centers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			centers, err := a.svc.ListCenters(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range centers {
				fmt.Fprintf(out, "%s\t%s\t%s\n", c.ID, c.Name, c.Investigator)
			}
			return nil
		},
	}
}

func newLookupCommand(a *app) *cobra.Command {
	var (
		scheme string
		center string
		export bool
	)
	cmd := &cobra.Command{
		Use:   "lookup VALUE...",
		Short: "Find participants by identifier",
		Long:  "Find participants matching any of the given identifiers under one scheme. The result is printed as a table and exported as CSV to the report store.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var found []core.Participant
			for _, value := range args {
				matches, err := a.svc.Resolve(ctx, value, scheme, center)
				if err != nil {
					return err
				}
				for _, p := range matches {
					if !slices.ContainsFunc(found, func(q core.Participant) bool { return q.ConsortiumID == p.ConsortiumID }) {
						found = append(found, p)
					}
				}
			}
			slices.SortFunc(found, func(x, y core.Participant) int { return cmp.Compare(x.ConsortiumID, y.ConsortiumID) })

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No participants found")
				return nil
			}
			centers, err := a.svc.ListCenters(ctx)
			if err != nil {
				return err
			}
			rows := report.Projections(found, report.CenterNames(centers))
			if err := report.RenderParticipants(out, rows); err != nil {
				return err
			}
			if !export {
				return nil
			}
			info, err := a.publisher.PublishParticipants(ctx, report.LookupKey, rows)
			if err != nil {
				return fmt.Errorf("export lookup: %w", err)
			}
			fmt.Fprintf(out, "Exported %d participants to %s\n", len(rows), info.Key)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&scheme, "index", "i", core.SchemeCanonical, "identifier scheme to search")
	f.StringVarP(&center, "center", "c", "", "restrict to one center (name or id)")
	f.BoolVar(&export, "export", true, "write the result to the report store")
	return cmd
}

func newBatchCommand(a *app) *cobra.Command {
	var (
		schemes []string
		center  string
		input   string
		export  bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Resolve a CSV of identifiers to consortium IDs",
		Long: "Resolve every row of a CSV file to a consortium ID. Give one --index for all columns " +
			"or one per column in header order. Without --index every column is searched under every scheme.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			table, err := report.ReadTable(r)
			if err != nil {
				return err
			}
			seq, err := a.svc.ResolveBatch(ctx, table, schemes, center)
			if err != nil {
				return err
			}
			resolutions, stats, err := report.Collect(seq)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := report.RenderResolutions(out, resolutions); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d rows: %d resolved, %d ambiguous, %d unresolved\n",
				stats.Rows, stats.Resolved, stats.Ambiguous, stats.Unresolved)
			if !export {
				return nil
			}
			info, _, err := a.publisher.PublishBatch(ctx, a.publisher.BatchKey(), table, report.Replay(resolutions))
			if err != nil {
				return fmt.Errorf("export batch: %w", err)
			}
			fmt.Fprintf(out, "Exported to %s\n", info.Key)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&schemes, "index", "i", nil, "identifier scheme, once for all columns or once per column")
	f.StringVarP(&center, "center", "c", "", "restrict to one center (name or id)")
	f.StringVar(&input, "input", "-", `CSV file to read, "-" for stdin`)
	f.BoolVar(&export, "export", true, "write the result to the report store")
	return cmd
}

func newAddAliasCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-alias CONSORTIUM_ID ALIAS",
		Short: "Register an alternate consortium ID for a participant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias, res, err := a.svc.RegisterAlias(cmd.Context(), args[0], args[1])
			a.warn(res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added alias %s for %s\n", alias.Alias, alias.ConsortiumID)
			return nil
		},
	}
}

func newMakePrimaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "make-primary ALIAS",
		Short: "Promote an alias to the participant's primary consortium ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, res, err := a.svc.PromoteAlias(cmd.Context(), args[0])
			a.warn(res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now the primary consortium ID\n", p.ConsortiumID)
			return nil
		},
	}
}

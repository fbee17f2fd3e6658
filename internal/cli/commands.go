package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
	"github.com/xelth-com/shoprecs/internal/services/builder"
	"github.com/xelth-com/shoprecs/internal/services/odoo"
)

func newRebuildCmd(current func() *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Mine order history into association data and prune stale rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := current().builder().Build(cmd.Context(), "cli")
			if errors.Is(err, builder.ErrRebuildInProgress) {
				fmt.Fprintln(cmd.ErrOrStderr(), "another build is running, skipped")
				return nil
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "orders=%d records=%d pruned=%d checksum=%s\n",
				rep.Rebuild.OrdersScanned, rep.Rebuild.RecordsWritten,
				rep.Prune.Unpublished+rep.Prune.StaleContent, rep.Rebuild.Checksum)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the build report as JSON")
	return cmd
}

func newPruneCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove rows for unpublished products and expired content rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := current().maintainer().PruneStale(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unpublished=%d stale_content=%d\n", res.Unpublished, res.StaleContent)
			return nil
		},
	}
}

func newClearCmd(current func() *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored recommendation data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			if err := current().maintainer().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "recommendation data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

type statsReport struct {
	recommend.Stats
	Orders int64                        `json:"Orders"`
	Builds []models.RecommendationBuild `json:"Builds,omitempty"`
}

func newStatsCmd(current func() *app) *cobra.Command {
	var (
		asJSON  bool
		history int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored recommendation counts and the last build time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			st, err := a.maintainer().Stats(cmd.Context())
			if err != nil {
				return err
			}
			report := statsReport{Stats: st}
			if report.Orders, err = a.orders.CountOrders(cmd.Context()); err != nil {
				return err
			}
			if history > 0 {
				if report.Builds, err = a.builds.Recent(cmd.Context(), history); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			last := "never"
			if !st.LastBuild.IsZero() {
				last = st.LastBuild.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "total=%d content=%d association=%d orders=%d last_build=%s\n",
				st.Total, st.Content, st.Association, report.Orders, last)
			for _, b := range report.Builds {
				fmt.Fprintf(out, "%s %s trigger=%s orders=%d records=%d pruned=%d started=%s\n",
					b.ID, b.Status, b.Trigger, b.OrdersScanned, b.RecordsWritten, b.Pruned,
					b.StartedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	cmd.Flags().IntVar(&history, "history", 0, "also list the latest n builds")
	return cmd
}

func newRecommendCmd(current func() *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend <product-id>",
		Short: "Print recommendations for one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) != 1 {
				return fmt.Errorf("expected one product id, got %d", len(ids))
			}
			recs, err := current().selector().Recommend(cmd.Context(), ids[0], limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatIDs(recs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (0 = configured maximum)")
	return cmd
}

func newCartCmd(current func() *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "cart <product-id>...",
		Short: "Print recommendations for a cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			recs, err := current().selector().RecommendForCart(cmd.Context(), ids, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatIDs(recs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (0 = configured maximum)")
	return cmd
}

func newOverrideCmd(current func() *app) *cobra.Command {
	var custom, exclude []int64
	cmd := &cobra.Command{
		Use:   "override <product-id>",
		Short: "Set curated and excluded recommendations for a product",
		Long:  "Set curated and excluded recommendations for a product. Passing neither list removes the override.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) != 1 {
				return fmt.Errorf("expected one product id, got %d", len(ids))
			}
			if err := current().overrides.SetOverride(cmd.Context(), ids[0], custom, exclude); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "override saved for %d\n", ids[0])
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&custom, "custom", nil, "curated product ids, in display order")
	cmd.Flags().Int64SliceVar(&exclude, "exclude", nil, "product ids never to recommend")
	return cmd
}

func newImportOdooCmd(current func() *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "import-odoo",
		Short: "Import the catalog and confirmed sales from Odoo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if a.cfg == nil || !a.cfg.Odoo.Enabled() {
				return errors.New("ODOO_URL is not configured")
			}
			oc := a.cfg.Odoo
			client := odoo.NewClient(oc.URL, oc.Database, oc.Username, oc.Password)
			if _, err := client.Authenticate(); err != nil {
				return err
			}

			if days <= 0 {
				s, err := a.settings.Settings(cmd.Context())
				if err != nil {
					return err
				}
				days = s.Association.DaysBack
			}
			since := time.Now().UTC().AddDate(0, 0, -days)

			im := odoo.NewImporter(client, a.catalog, a.orders, oc.BatchSize, a.log)
			res, err := im.Run(cmd.Context(), since)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "products=%d orders=%d failed=%d\n", res.Products, res.Orders, res.Failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "order history window in days (0 = association days_back)")
	return cmd
}

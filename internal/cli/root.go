// Package cli implements the recs command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/xelth-com/shoprecs/internal/buildinfo"
)

// Execute runs the recs command tree and releases whatever the command
// opened, whether or not it succeeded.
func Execute(ctx context.Context) error {
	s := &session{open: openApp}
	return execute(ctx, s, newRootCommand(s))
}

func execute(ctx context.Context, s *session, root *cobra.Command) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

// session holds the app for one invocation. An app it opened itself is
// closed by Close; an injected one is left to its owner.
type session struct {
	app   *app
	open  func(context.Context) (*app, error)
	owned bool
}

func (s *session) current() *app { return s.app }

func (s *session) ensure(ctx context.Context) error {
	if s.app != nil {
		return nil
	}
	opened, err := s.open(ctx)
	if err != nil {
		return err
	}
	s.app, s.owned = opened, true
	return nil
}

func (s *session) Close() error {
	if !s.owned || s.app == nil {
		return nil
	}
	return s.app.Close()
}

func newRootCommand(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           "recs",
		Short:         "Related-product recommendations for the storefront catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["standalone"] == "true" {
				return nil
			}
			return s.ensure(cmd.Context())
		},
	}

	root.AddCommand(
		newRebuildCmd(s.current),
		newPruneCmd(s.current),
		newClearCmd(s.current),
		newStatsCmd(s.current),
		newRecommendCmd(s.current),
		newCartCmd(s.current),
		newOverrideCmd(s.current),
		newImportOdooCmd(s.current),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"standalone": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), buildinfo.Summary())
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid product id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"itsite/backend"
	"itsite/config"
	"itsite/remotelist"

	"github.com/spf13/cobra"
)

var (
	fetchAll      bool
	fetchSelected string
	fetchRefresh  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [COLLECTION...]",
	Short: "Load content collections from the backend",
	Long: `Load one or more content collections (services, projects, blogs, careers)
from the configured backend and print them in display order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !fetchAll {
			return errors.New("name at least one collection or pass --all")
		}
		if fetchAll {
			args = nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg := config.AppConfig
		reg := newRegistry(cfg, backend.New(cfg.APIBaseURL))
		trigger := remotelist.TriggerMount
		if fetchRefresh {
			trigger = remotelist.TriggerRefresh
		}
		return runFetch(ctx, cmd.OutOrStdout(), reg, trigger, args, fetchSelected)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "Fetch every collection")
	fetchCmd.Flags().StringVar(&fetchSelected, "selected", "", "Item id to keep selected when present")
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "Ignore cached data")
	rootCmd.AddCommand(fetchCmd)
}

// runFetch loads the named collections (all when names is empty), prints
// them and returns the combined failures.
func runFetch(ctx context.Context, w io.Writer, reg *remotelist.Registry, trigger remotelist.Trigger, names []string, selected string) error {
	fetchErr := reg.FetchAll(ctx, trigger, names...)
	if len(names) == 0 {
		names = reg.Names()
	}

	snaps := make([]remotelist.Snapshot, 0, len(names))
	for _, name := range names {
		s, ok := reg.Get(name)
		if !ok {
			// FetchAll already rejected it.
			return fetchErr
		}
		snaps = append(snaps, s.Snapshot().WithSelection(selected))
	}

	if IsJSONOutput() {
		if err := json.NewEncoder(w).Encode(snaps); err != nil {
			return err
		}
	} else {
		for _, snap := range snaps {
			fmt.Fprintln(w, formatSnapshotHuman(snap))
		}
	}
	return fetchErr
}

func formatSnapshotHuman(snap remotelist.Snapshot) string {
	var b strings.Builder
	switch snap.State {
	case remotelist.Failed:
		fmt.Fprintf(&b, "%s: failed: %s", snap.Collection, snap.Error)
		return b.String()
	case remotelist.Ready:
		fmt.Fprintf(&b, "%s: %d items", snap.Collection, len(snap.Items))
	default:
		fmt.Fprintf(&b, "%s: %s", snap.Collection, snap.State)
		return b.String()
	}

	for _, item := range snap.Items {
		marker := " "
		if item.ID == snap.Selected {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n %s %s", marker, item.Title)
		var extra []string
		if item.Category != "" {
			extra = append(extra, item.Category)
		}
		if item.Author != "" {
			extra = append(extra, item.Author)
		}
		if item.DisplayDate != "" {
			extra = append(extra, item.DisplayDate)
		}
		if len(extra) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(extra, ", "))
		}
		for _, sub := range item.SubItems {
			fmt.Fprintf(&b, "\n     - %s", sub.Name)
		}
	}
	return b.String()
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
)

// HistoryCmd groups the history subcommands.
type HistoryCmd struct {
	List HistoryListCmd `cmd:"" default:"withargs" help:"List recent builds, newest first"`
	Show HistoryShowCmd `cmd:"" help:"Show one build including its log"`
}

// HistoryListCmd implements 'history list'.
type HistoryListCmd struct {
	Limit int  `short:"n" help:"Maximum number of entries (0 for all)" default:"20"`
	JSON  bool `name:"json" help:"Print entries as JSON"`
}

func (h *HistoryListCmd) Run(ctx context.Context, out io.Writer, root *CLI) error {
	store, err := openHistory(root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []*history.Entry{}
		}
		if err := enc.Encode(entries); err != nil {
			return errors.InternalError("encode history entries").WithCause(err).Build()
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tKIND\tSTATUS\tEXIT\tDURATION\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.StartedAt.Format(time.RFC3339), e.Kind, status(e), e.ExitCode,
			e.Duration.Round(time.Millisecond), e.Source)
	}
	return tw.Flush()
}

// HistoryShowCmd implements 'history show'.
type HistoryShowCmd struct {
	ID string `arg:"" help:"Entry ID as printed by 'history list'"`
}

func (h *HistoryShowCmd) Run(ctx context.Context, out io.Writer, root *CLI) error {
	store, err := openHistory(root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	e, err := store.Get(ctx, h.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "ID:          %s\n", e.ID)
	fmt.Fprintf(out, "Kind:        %s\n", e.Kind)
	fmt.Fprintf(out, "Status:      %s\n", status(e))
	fmt.Fprintf(out, "Source:      %s\n", e.Source)
	fmt.Fprintf(out, "Output:      %s\n", e.Output)
	fmt.Fprintf(out, "Fingerprint: %s\n", e.Fingerprint)
	fmt.Fprintf(out, "Started:     %s\n", e.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Duration:    %s\n", e.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Exit code:   %d\n", e.ExitCode)

	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "[%s]\n%s\n", k, indent(e.Errors[k]))
	}
	if e.Log != "" {
		fmt.Fprintf(out, "--- log ---\n%s\n", e.Log)
	}
	return nil
}

func openHistory(root *CLI) (history.Store, error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.ConfigError("build history is disabled (set history.enabled or TEXBUILDER_HISTORY_PATH)").Build()
	}
	return history.NewSQLiteStore(cfg.History.Path)
}

func status(e *history.Entry) string {
	if e.OK {
		if len(e.Errors) > 0 {
			return "warning"
		}
		return "ok"
	}
	return "failed"
}

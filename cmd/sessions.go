package cmd

import (
	"fmt"
	"time"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/profiling"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/grovetools/claudelogs/state"
	"github.com/spf13/cobra"
)

func NewSessionsCmd() *cobra.Command {
	var (
		limit   int
		offset  int
		sortBy  string
		order   string
		search  string
		cursor  string
		since   string
		until   string
		showAll bool
		next    bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions of a project",
		Long: `List session metadata for a project, sorted and paginated.

Offset pagination is used by default. Passing --cursor, --next, --since or
--until switches to cursor pagination; the next cursor is printed after the
table and remembered per project, so --next continues where the previous
page ended.

Examples:
  claudelogs sessions --sort messageCount --limit 10
  claudelogs sessions --search "refactor" --json
  claudelogs sessions --since 24h
  claudelogs sessions --next
  claudelogs sessions --cursor eyJ2YWx1ZSI6...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.NewService(cmd)
			if err != nil {
				return err
			}
			project, err := resolveProject(cmd, svc)
			if err != nil {
				return err
			}
			opts := cli.GetOptions(cmd)
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			defer profiling.Start(ctx, "query").Stop()
			cursors := state.Default()

			if showAll {
				items, err := svc.SessionsMetadata(ctx, project)
				if err != nil {
					return err
				}
				if opts.JSONOutput {
					return cli.PrintJSON(out, items)
				}
				cli.RenderMetadata(out, items)
				return nil
			}

			if next {
				if cursor != "" {
					return errors.InvalidInput("next", true, "cannot be combined with --cursor")
				}
				if cursor, err = cursors.GetString(cursorKey(project)); err != nil {
					return errors.Internal(err, "failed to read saved cursor")
				}
			}

			if cursor != "" || next || since != "" || until != "" {
				now := time.Now()
				start, err := parseTimeFlag("since", since, now)
				if err != nil {
					return err
				}
				end, err := parseTimeFlag("until", until, now)
				if err != nil {
					return err
				}
				page, err := svc.SessionsCursor(ctx, project, transcript.CursorOptions{
					Cursor:    cursor,
					Limit:     limit,
					SortBy:    transcript.SortField(sortBy),
					SortOrder: transcript.SortOrder(order),
					Search:    search,
					StartDate: start,
					EndDate:   end,
				})
				if err != nil {
					return err
				}
				if err := saveCursor(cursors, project, page); err != nil {
					cli.GetLogger(cmd).WithError(err).Warn("Failed to remember cursor")
				}
				if opts.JSONOutput {
					return cli.PrintJSON(out, page)
				}
				cli.RenderMetadata(out, page.Sessions)
				if page.HasMore {
					fmt.Fprintf(out, "%s %s\n", cli.DefaultTheme.Muted.Render("Next cursor:"), page.NextCursor)
				}
				return nil
			}

			page, err := svc.SessionsPaginated(ctx, project, transcript.PageOptions{
				Limit:     limit,
				Offset:    offset,
				SortBy:    transcript.SortField(sortBy),
				SortOrder: transcript.SortOrder(order),
				Search:    search,
			})
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return cli.PrintJSON(out, page)
			}
			cli.RenderMetadata(out, page.Sessions)
			if len(page.Sessions) > 0 {
				footer := fmt.Sprintf("Showing %d-%d of %d", offset+1, offset+len(page.Sessions), page.Total)
				if page.HasMore {
					footer += fmt.Sprintf(" (next: --offset %d)", offset+len(page.Sessions))
				}
				fmt.Fprintln(out, cli.DefaultTheme.Muted.Render(footer))
			}
			return nil
		},
	}

	addProjectFlag(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", transcript.DefaultPageLimit, "Maximum number of sessions")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of sessions to skip")
	cmd.Flags().StringVar(&sortBy, "sort", string(transcript.SortByLastUpdate), "Sort field: lastUpdate, startTime, messageCount or fileSize")
	cmd.Flags().StringVar(&order, "order", string(transcript.SortDesc), "Sort order: asc or desc")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive filter on id and previews")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Resume after a cursor from a previous page")
	cmd.Flags().StringVar(&since, "since", "", "Only sessions updated at or after this time (RFC 3339, date or duration ago)")
	cmd.Flags().StringVar(&until, "until", "", "Only sessions updated at or before this time")
	cmd.Flags().BoolVar(&showAll, "all", false, "Print every session without pagination")
	cmd.Flags().BoolVar(&next, "next", false, "Continue after the last cursor page of this project")
	return cmd
}

func cursorKey(project string) string {
	return "cursor:" + project
}

// saveCursor remembers where the next page starts, or forgets it after the
// last page.
func saveCursor(store *state.Store, project string, page transcript.CursorPage) error {
	if !page.HasMore {
		return store.Delete(cursorKey(project))
	}
	return store.Set(cursorKey(project), page.NextCursor)
}

// parseTimeFlag accepts RFC 3339, a plain date, or a duration meaning "that
// long before now". Empty yields the zero time.
func parseTimeFlag(name, value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.Local); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, errors.InvalidInput(name, value, "expected RFC 3339 time, YYYY-MM-DD or a duration")
}

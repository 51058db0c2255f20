package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"folio/app/internal/app/bootstrap"
	"folio/app/internal/jobs"
	"folio/app/internal/revision"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := initRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := bootstrap.Migrate(cmd.Context(), *rt.Config, rt.Logger); err != nil {
				return eris.Wrap(err, "running migrations")
			}
			success(cmd.OutOrStdout(), "Schema is up to date (%s)", rt.Config.DBPath)
			return nil
		},
	}
}

func newPublishDueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Publish scheduled content whose date has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := initRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			app, err := rt.build(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "building application")
			}
			defer func() { _ = app.Cleanup() }()

			published, err := app.Content.PublishDue(cmd.Context(), jobs.SystemActor)
			if err != nil {
				return eris.Wrap(err, "publishing due content")
			}

			out := cmd.OutOrStdout()
			if len(published) == 0 {
				notice(out, "Nothing is due")
				return nil
			}
			success(out, "Published %d item(s)", len(published))
			for _, id := range published {
				fmt.Fprintf(out, "  %d\n", id)
			}
			return nil
		},
	}
}

func newPruneRevisionsCommand() *cobra.Command {
	var (
		keep      int
		contentID uint
	)

	cmd := &cobra.Command{
		Use:   "prune-revisions",
		Short: "Delete all but the newest revisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := initRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("keep") {
				keep = rt.Config.RevisionKeep
			}

			app, err := rt.build(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "building application")
			}
			defer func() { _ = app.Cleanup() }()

			var removed int64
			if contentID > 0 {
				removed, err = app.Content.PruneRevisions(cmd.Context(), contentID, keep)
			} else {
				removed, err = app.Content.PruneAllRevisions(cmd.Context(), keep)
			}
			if err != nil {
				return eris.Wrap(err, "pruning revisions")
			}

			success(cmd.OutOrStdout(), "Removed %d revision(s), keeping %d per content", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of newest revisions to keep (defaults to REVISION_KEEP)")
	cmd.Flags().UintVar(&contentID, "content", 0, "Only prune this content id")
	return cmd
}

func newRevisionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <content-id>",
		Short: "Show the revision history of a content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return eris.Errorf("invalid content id: %s", args[0])
			}

			rt, err := initRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			app, err := rt.build(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "building application")
			}
			defer func() { _ = app.Cleanup() }()

			revs, err := app.Content.Revisions(cmd.Context(), uint(id))
			if err != nil {
				return eris.Wrapf(err, "listing revisions of content %d", id)
			}

			out := cmd.OutOrStdout()
			if len(revs) == 0 {
				notice(out, "No revisions yet")
				return nil
			}

			yellow := color.New(color.FgYellow)
			cyan := color.New(color.FgCyan)
			for _, rev := range revs {
				yellow.Fprintf(out, "revision %d ", rev.RevisionNumber)
				if rev.IsAuto {
					fmt.Fprint(out, "(auto)")
				} else {
					cyan.Fprint(out, "(manual)")
				}
				fmt.Fprintln(out)

				author := "anonymous"
				if rev.AuthorID != nil {
					author = *rev.AuthorID
				}
				fmt.Fprintf(out, "Author: %s\n", author)
				fmt.Fprintf(out, "Date:   %s\n", rev.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
				for _, field := range sortedChangeKeys(rev.Changes.Data()) {
					fmt.Fprintf(out, "    ~ %s\n", field)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func sortedChangeKeys(changes revision.Changes) []string {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

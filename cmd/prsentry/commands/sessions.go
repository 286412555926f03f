package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/roasbeef/prsentry/internal/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent review sessions",
	Long:  `List the most recent review session runs from the local ledger.`,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(
		&sessionsLimit, "limit", 20,
		"Maximum number of sessions to show",
	)
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dbPath := viper.GetString("db_path")
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultDBPath()
		if err != nil {
			return err
		}
	}

	store, err := db.Open(dbPath, slog.Default())
	if err != nil {
		return fmt.Errorf("open session ledger: %w", err)
	}
	defer store.Close()

	entries, err := store.ListSessions(ctx, sessionsLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{
		"Started", "Repo", "PR", "Identity", "Verdict", "Status",
		"Exit",
	})

	for _, entry := range entries {
		verdict := "comment-only"
		if entry.CanRequestChanges {
			verdict = "request-changes"
		}

		status := entry.Status
		if status == "" {
			status = "running"
		}

		exit := "-"
		if entry.ExitCode.Valid {
			exit = strconv.FormatInt(entry.ExitCode.Int64, 10)
		}

		_ = table.Append([]string{
			entry.StartedAt.Format("2006-01-02 15:04"),
			entry.RepoOwner + "/" + entry.RepoName,
			"#" + strconv.Itoa(entry.PRNumber),
			entry.IdentityKind + ":" + entry.IdentityLogin,
			verdict,
			status,
			exit,
		})
	}

	return table.Render()
}

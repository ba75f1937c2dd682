package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/easypluginz/apphistory"
)

var (
	accessToken string
	baseURL     string
	module      string
	debug       bool
)

const dateOnlyLayout = "2006-01-02"

func dbg(v interface{}) {
	if !debug {
		return
	}
	log.Debug().Interface("data", v).Msg("debug output")
}

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apphistory",
		Short: "CLI for inspecting and mutating CRM application history records",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			log.Logger = log.Output(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: "2006-01-02 15:04:05",
				NoColor:    true,
			})

			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				_ = os.Setenv("APPHISTORY_DEBUG", "true")
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", os.Getenv("ZOHO_ACCESS_TOKEN"), "OAuth access token (defaults to $ZOHO_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", os.Getenv("APPHISTORY_BASE_URL"), "Explicit CRM API origin (overrides data-center default)")
	rootCmd.PersistentFlags().StringVar(&module, "module", "Applications", "Parent module the record lives in")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newTypesCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newSearchStakeholdersCmd())
	rootCmd.AddCommand(newListAttachmentsCmd())
	rootCmd.AddCommand(newDownloadAttachmentCmd())

	return rootCmd
}

// newClient builds an SDK client from the persistent flags.
func newClient() (*apphistory.Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("--access-token or $ZOHO_ACCESS_TOKEN is required")
	}
	var opts []apphistory.Option
	if baseURL != "" {
		opts = append(opts, apphistory.WithBaseURL(baseURL))
	}
	return apphistory.New(accessToken, opts...), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLoadCmd() *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the history rows for a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			start := time.Now()
			res, err := c.LoadHistory(ctx, module, recordID)
			elapsed := time.Since(start)
			if err != nil {
				log.Error().Err(err).
					Str("module", module).
					Str("record_id", recordID).
					Dur("elapsed", elapsed).
					Msg("load failed")
				return err
			}

			log.Debug().
				Str("module", module).
				Str("record_id", recordID).
				Int("rows", len(res.Rows)).
				Dur("elapsed", elapsed).
				Msg("load completed")

			dbg(res)
			return printJSON(cmd, res.Rows)
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	_ = cmd.MarkFlagRequired("record-id")

	return cmd
}

func newFilterCmd() *cobra.Command {
	var recordID, owner, historyType, keyword string
	var lastDays int
	var from, to, period string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Load history rows and apply owner/type/date/keyword filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := apphistory.Filter{
				OwnerName: owner,
				Type:      historyType,
				Keyword:   keyword,
			}
			switch {
			case lastDays > 0:
				f.Mode = apphistory.DateLastN
				f.LastN = lastDays
			case from != "" || to != "":
				if from == "" || to == "" {
					return fmt.Errorf("--from and --to must be supplied together")
				}
				start, err := time.Parse(dateOnlyLayout, from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				end, err := time.Parse(dateOnlyLayout, to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				f.Mode = apphistory.DateRange
				f.Start = start
				f.End = end
			case period != "":
				f.Mode = apphistory.DatePeriod
				f.Period = apphistory.Period(period)
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}

			rows := c.FilterRows(f)
			log.Debug().
				Str("record_id", recordID).
				Int("rows", len(rows)).
				Msg("filter completed")
			return printJSON(cmd, rows)
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner display name")
	cmd.Flags().StringVar(&historyType, "type", "", "Activity type")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Keyword matched against name, details and regarding")
	cmd.Flags().IntVar(&lastDays, "last-days", 0, "Keep rows from the last N days")
	cmd.Flags().StringVar(&from, "from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&period, "period", "", `Named period ("Current Week", "Current Month", "Next Week")`)
	_ = cmd.MarkFlagRequired("record-id")

	return cmd
}

func newTypesCmd() *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Print the activity-type catalog for a record's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}
			return printJSON(cmd, c.TypeCatalog())
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	_ = cmd.MarkFlagRequired("record-id")

	return cmd
}

// historyInputFlags binds the shared create/update form fields.
type historyInputFlags struct {
	historyType, result, regarding, details string
	duration, date                          string
	stakeholderID, stakeholderName          string
	contactIDs                              []string
	attachmentPath                          string
}

func (f *historyInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.historyType, "type", "", "Activity type (required)")
	cmd.Flags().StringVar(&f.result, "result", "", "History result")
	cmd.Flags().StringVar(&f.regarding, "regarding", "", "Regarding line")
	cmd.Flags().StringVar(&f.details, "details", "", "Free-form details")
	cmd.Flags().StringVar(&f.duration, "duration", "", "Duration in minutes")
	cmd.Flags().StringVar(&f.date, "date", "", "Activity date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.stakeholderID, "stakeholder-id", "", "Stakeholder account ID")
	cmd.Flags().StringVar(&f.stakeholderName, "stakeholder-name", "", "Stakeholder account name")
	cmd.Flags().StringSliceVar(&f.contactIDs, "contact-id", nil, "Participant contact ID (repeatable)")
	cmd.Flags().StringVar(&f.attachmentPath, "attachment", "", "Path of a file to attach")
	_ = cmd.MarkFlagRequired("type")
}

func (f *historyInputFlags) build() (apphistory.HistoryInput, error) {
	in := apphistory.HistoryInput{
		Type:        f.historyType,
		Result:      f.result,
		Regarding:   f.regarding,
		Details:     f.details,
		DurationMin: f.duration,
	}
	if f.date != "" {
		d, err := time.ParseInLocation(dateOnlyLayout, f.date, time.Local)
		if err != nil {
			return in, fmt.Errorf("invalid --date: %w", err)
		}
		in.Date = &d
	}
	if f.stakeholderID != "" {
		in.Stakeholder = &apphistory.StakeholderRef{ID: f.stakeholderID, Name: f.stakeholderName}
	}
	for _, id := range f.contactIDs {
		in.Participants = append(in.Participants, apphistory.Participant{ID: id})
	}
	if f.attachmentPath != "" {
		content, err := os.ReadFile(f.attachmentPath)
		if err != nil {
			return in, fmt.Errorf("read attachment: %w", err)
		}
		in.Attachment = &apphistory.AttachmentUpload{
			FileName: filepath.Base(f.attachmentPath),
			Content:  content,
		}
	}
	return in, nil
}

func newCreateCmd() *cobra.Command {
	var recordID string
	var flags historyInputFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a history record under a parent record",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.build()
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}

			start := time.Now()
			res, err := c.CreateHistory(ctx, in)
			elapsed := time.Since(start)
			if err != nil {
				log.Error().Err(err).
					Str("record_id", recordID).
					Dur("elapsed", elapsed).
					Msg("create failed")
				return err
			}

			log.Debug().
				Str("record_id", recordID).
				Str("history_id", res.ID).
				Int("junctions_ok", res.JunctionsOK).
				Int("junctions_failed", res.JunctionsFailed).
				Dur("elapsed", elapsed).
				Msg("create completed")

			// Drain the confirming reload before the process exits.
			if err := c.AwaitIdle(ctx, recordID); err != nil {
				return err
			}

			dbg(res)
			fmt.Fprintf(cmd.OutOrStdout(), "History created: %s\n", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	_ = cmd.MarkFlagRequired("record-id")
	flags.register(cmd)

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var recordID, historyID string
	var flags historyInputFlags

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an existing history record",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.build()
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}

			res, err := c.UpdateHistory(ctx, historyID, in)
			if err != nil {
				log.Error().Err(err).
					Str("history_id", historyID).
					Msg("update failed")
				return err
			}
			if err := c.AwaitIdle(ctx, recordID); err != nil {
				return err
			}

			dbg(res)
			fmt.Fprintf(cmd.OutOrStdout(), "History updated: %s\n", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	cmd.Flags().StringVar(&historyID, "history-id", "", "History record ID (required)")
	_ = cmd.MarkFlagRequired("record-id")
	_ = cmd.MarkFlagRequired("history-id")
	flags.register(cmd)

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var recordID, historyID string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a history record and its contact links",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}
			if err := c.DeleteHistory(ctx, historyID); err != nil {
				log.Error().Err(err).
					Str("history_id", historyID).
					Msg("delete failed")
				return err
			}
			if err := c.AwaitIdle(ctx, recordID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "History deleted")
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	cmd.Flags().StringVar(&historyID, "history-id", "", "History record ID (required)")
	_ = cmd.MarkFlagRequired("record-id")
	_ = cmd.MarkFlagRequired("history-id")

	return cmd
}

func newMoveCmd() *cobra.Command {
	var recordID, historyID, targetID string

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a history record to a different application",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			if _, err := c.LoadHistory(ctx, module, recordID); err != nil {
				return err
			}

			res, err := c.MoveHistory(ctx, apphistory.MoveHistoryRequest{
				HistoryID:           historyID,
				TargetApplicationID: targetID,
			})
			if err != nil {
				log.Error().Err(err).
					Str("history_id", historyID).
					Str("target_id", targetID).
					Msg("move failed")
				return err
			}
			if err := c.AwaitIdle(ctx, recordID); err != nil {
				return err
			}

			dbg(res)
			fmt.Fprintf(cmd.OutOrStdout(), "History moved: %s\n", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Parent record ID (required)")
	cmd.Flags().StringVar(&historyID, "history-id", "", "History record ID (required)")
	cmd.Flags().StringVar(&targetID, "target-id", "", "Target application ID (required)")
	_ = cmd.MarkFlagRequired("record-id")
	_ = cmd.MarkFlagRequired("history-id")
	_ = cmd.MarkFlagRequired("target-id")

	return cmd
}

func newSearchStakeholdersCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "search-stakeholders",
		Short: "Search accounts usable as history stakeholders",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			refs, err := c.SearchStakeholders(ctx, query)
			if err != nil {
				log.Error().Err(err).Str("query", query).Msg("search failed")
				return err
			}

			log.Debug().
				Str("query", query).
				Int("count", len(refs)).
				Msg("search completed")
			return printJSON(cmd, refs)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search query (required)")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func newListAttachmentsCmd() *cobra.Command {
	var historyID string

	cmd := &cobra.Command{
		Use:   "list-attachments",
		Short: "List attachments on a history record",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			atts, err := c.ListAttachments(ctx, historyID)
			if err != nil {
				return err
			}
			return printJSON(cmd, atts)
		},
	}

	cmd.Flags().StringVar(&historyID, "history-id", "", "History record ID (required)")
	_ = cmd.MarkFlagRequired("history-id")

	return cmd
}

func newDownloadAttachmentCmd() *cobra.Command {
	var historyID, attachmentID, out string

	cmd := &cobra.Command{
		Use:   "download-attachment",
		Short: "Download a history attachment through the configured proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			data, contentType, err := c.DownloadAttachment(ctx, historyID, attachmentID)
			if err != nil {
				log.Error().Err(err).
					Str("history_id", historyID).
					Str("attachment_id", attachmentID).
					Msg("download failed")
				return err
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes (%s) to %s\n", len(data), contentType, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&historyID, "history-id", "", "History record ID (required)")
	cmd.Flags().StringVar(&attachmentID, "attachment-id", "", "Attachment ID (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output file path (required)")
	_ = cmd.MarkFlagRequired("history-id")
	_ = cmd.MarkFlagRequired("attachment-id")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

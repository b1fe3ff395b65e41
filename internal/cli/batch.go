package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"PushOrShame/internal/schedule"
)

type BatchOptions struct {
	*RootOptions
	Date string
}

// NewBatchCommand 手动补跑某天的批处理
func NewBatchCommand(rootOpts *RootOptions, backend Backend) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the daily batch for a date",
		Long: `Run the daily batch for every eligible participant.

Use this to recover after a missed scheduled run. Participants already checked
for the date are skipped. The date defaults to yesterday.

Example:
  pos-ops batch --date 2026-01-20 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := resolveDate(opts.Date, time.Now())
			if err != nil {
				return err
			}

			report, err := backend.RunBatch(cmd.Context(), date)
			if report == nil {
				return err
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			text := func(w io.Writer) { writeBatchReport(w, report) }
			if err != nil {
				return out.Failure(report, err, text)
			}
			return out.Success(report, text)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "batch date YYYY-MM-DD (default yesterday)")

	return cmd
}

func writeBatchReport(w io.Writer, r *schedule.BatchReport) {
	fmt.Fprintf(w, "batch %d  date %s  took %s\n", r.RunID, r.Date, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  eligible: %d  active: %d  inactive: %d  already checked: %d  failed: %d  caught up: %d\n",
		r.Eligible, r.Active, r.Inactive, r.AlreadyChecked, r.Failed, r.CaughtUp)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  participant %d %s %s: %s\n", f.ParticipantID, f.Date, f.Outcome, f.Error)
	}
	if r.SummaryPosted {
		fmt.Fprintf(w, "  summary posted: %s\n", r.SummaryPostID)
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"PushOrShame/internal/service"
	"PushOrShame/utils"
)

type CheckOptions struct {
	*RootOptions
	Participant string
	Date        string
}

// NewCheckCommand 对单个参与者的某一天执行最终检查
func NewCheckCommand(rootOpts *RootOptions, backend Backend) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the daily check for one participant",
		Long: `Run the daily check for one participant and finalize the day.

The date defaults to yesterday in the participant time zone. A day that is
already committed reports already_checked and changes nothing.

Example:
  pos-ops check --participant 1839201 --date 2026-01-20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			publicID, err := service.ParsePublicID(opts.Participant)
			if err != nil {
				return fmt.Errorf("invalid --participant %q: %w", opts.Participant, err)
			}
			date, err := resolveDate(opts.Date, time.Now())
			if err != nil {
				return err
			}

			res, err := backend.CheckParticipant(cmd.Context(), publicID, date)
			if err != nil {
				return err
			}

			data := service.ResultData(res)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			text := func(w io.Writer) { writeCheckResult(w, opts.Participant, res) }
			if res.Outcome == service.OutcomeCompleted || res.Outcome == service.OutcomeAlreadyChecked {
				return out.Success(data, text)
			}
			failure := fmt.Errorf("check finished with outcome %s", res.Outcome)
			if res.Err != nil {
				failure = fmt.Errorf("check finished with outcome %s: %w", res.Outcome, res.Err)
			}
			return out.Failure(data, failure, text)
		},
	}

	cmd.Flags().StringVar(&opts.Participant, "participant", "", "participant public ID")
	cmd.Flags().StringVar(&opts.Date, "date", "", "check date YYYY-MM-DD (default yesterday)")
	_ = cmd.MarkFlagRequired("participant")

	return cmd
}

// resolveDate 空值取参与者时区的昨天
func resolveDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return utils.YesterdayWindow(now).Date, nil
	}
	date, err := utils.ParseDateKey(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func writeCheckResult(w io.Writer, participant string, res *service.CheckResult) {
	fmt.Fprintf(w, "participant %s  date %s  outcome %s\n", participant, res.Date, res.Outcome)
	if res.Outcome != service.OutcomeCompleted && res.Outcome != service.OutcomeAlreadyChecked {
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
		}
		return
	}

	fmt.Fprintf(w, "  active: %t  activity: %d  source: %s  streak: %d\n",
		res.Active, res.ActivityCount, res.Source, res.Stats.CurrentStreak)
	if !res.Active {
		fmt.Fprintf(w, "  shame post: %s\n", postStatus(res.Shame))
	}
	if res.Milestone != nil {
		fmt.Fprintf(w, "  milestone %s: %s\n", res.Milestone, postStatus(res.Celebration))
	}
	if len(res.NewBadges) > 0 {
		fmt.Fprintf(w, "  new badges: %s\n", strings.Join(res.NewBadges, ", "))
	}
}

func postStatus(p service.PostResult) string {
	switch {
	case p.Sent:
		return "sent " + p.PostID
	case p.Attempted:
		return "failed"
	default:
		return "not attempted"
	}
}

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"PushOrShame/internal/service"
)

type TokenOptions struct {
	*RootOptions
	Participant string
	TTL         time.Duration
}

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewTokenCommand 为参与者签发 API access token，用于排查问题
func NewTokenCommand(rootOpts *RootOptions, backend Backend) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token for a participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			publicID, err := service.ParsePublicID(opts.Participant)
			if err != nil {
				return fmt.Errorf("invalid --participant %q: %w", opts.Participant, err)
			}

			tok, expiresAt, err := backend.IssueToken(publicID, opts.TTL)
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(tokenOutput{AccessToken: tok, ExpiresAt: expiresAt}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Participant, "participant", "", "participant public ID")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default JWT_EXPIRE_MINUTES)")
	_ = cmd.MarkFlagRequired("participant")

	return cmd
}

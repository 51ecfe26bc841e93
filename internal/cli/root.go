package cli

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/audition/recorder"
	"github.com/yoockh/audition/internal/audition/timer"
	"github.com/yoockh/audition/internal/client"
	"github.com/yoockh/audition/internal/logger"
	"github.com/yoockh/audition/internal/utils"
)

// API is the backend surface the CLI uses.
type API interface {
	ListOpportunities(ctx context.Context) ([]client.Opportunity, error)
	FetchQuestions(ctx context.Context, opportunityID string) ([]audition.Question, error)
	StartSession(ctx context.Context, userID, opportunityID string) (*client.SessionInfo, error)
	SubmitAnswer(ctx context.Context, s client.AnswerSubmission) (*client.AnswerReceipt, error)
	EndSession(ctx context.Context, sessionID string, in client.EndSessionRequest) error
	SubmitSurvey(ctx context.Context, in client.SurveyRequest) error
}

type Deps struct {
	NewAPI    func(baseURL, token string, log *logrus.Logger) API
	NewDevice func(name string, dryRun bool) recorder.Device
	Clock     timer.Clock
}

func DefaultDeps() Deps {
	return Deps{
		NewAPI: func(baseURL, token string, log *logrus.Logger) API {
			return client.New(baseURL, client.WithToken(token), client.WithLogger(log))
		},
		NewDevice: func(name string, dryRun bool) recorder.Device {
			if dryRun {
				return recorder.NewMemoryDevice(silentWAV(), "audio/wav")
			}
			return &recorder.ArecordDevice{Name: name}
		},
		Clock: timer.RealClock(),
	}
}

type globalOpts struct {
	apiURL   string
	token    string
	logLevel string
}

func (g *globalOpts) logger(cmd *cobra.Command) *logrus.Logger {
	return logger.NewWith(g.logLevel, cmd.ErrOrStderr())
}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(DefaultDeps())
}

func NewRootCommandWith(d Deps) *cobra.Command {
	g := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:   "audition",
		Short: "Record timed answers to an opportunity's audition questions",
	}
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&g.apiURL, "api", envOr("AUDITION_API_URL", "http://localhost:8080"), "Audition backend base URL")
	rootCmd.PersistentFlags().StringVar(&g.token, "token", os.Getenv("AUDITION_TOKEN"), "Bearer token for the backend")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newOpportunitiesCmd(g, d),
		newQuestionsCmd(g, d),
		newCheckCmd(d),
		newRunCmd(g, d),
		newSurveyCmd(g, d),
	)
	return rootCmd
}

func newOpportunitiesCmd(g *globalOpts, d Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"opps"},
		Short:   "List open opportunities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := d.NewAPI(g.apiURL, g.token, g.logger(cmd))
			opps, err := api.ListOpportunities(cmd.Context())
			if err != nil {
				return fmt.Errorf("list opportunities: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ID\tCOMPANY\tTITLE")
			for _, o := range opps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", o.ID, o.Company, o.Title)
			}
			return nil
		},
	}
}

func newQuestionsCmd(g *globalOpts, d Deps) *cobra.Command {
	var opportunityID string

	cmd := &cobra.Command{
		Use:     "questions",
		Aliases: []string{"q"},
		Short:   "Show the questions of an opportunity's audition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opportunityID) == "" {
				return errors.New("provide `--opportunity <id>`")
			}

			api := d.NewAPI(g.apiURL, g.token, g.logger(cmd))
			qs, err := api.FetchQuestions(cmd.Context(), opportunityID)
			if err != nil {
				return fmt.Errorf("fetch questions: %w", err)
			}

			total := 0
			for i, q := range qs {
				total += q.Limit()
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s\n", i+1, timer.FormatSeconds(q.Limit()), q.Text)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d question(s), %s of answer time\n", len(qs), timer.FormatSeconds(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opportunityID, "opportunity", "o", "", "Opportunity id")
	return cmd
}

func newCheckCmd(d Deps) *cobra.Command {
	var (
		device string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the microphone can be opened",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := recorder.New(d.NewDevice(device, dryRun))
			defer rec.Release()

			if err := rec.Acquire(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Microphone: %s (%s)\n", recorder.DeviceErrorKind(err), utils.MessageOf(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Microphone: ready")
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "ALSA capture device (default device when empty)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use a silent in-memory microphone")
	return cmd
}

func newSurveyCmd(g *globalOpts, d Deps) *cobra.Command {
	var (
		sessionID    string
		submissionID string
		userID       string
		rating       int
		reason       string
	)

	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Rate the audition experience",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" && submissionID == "" {
				return errors.New("provide `--session <id>` or `--submission <id>`")
			}
			if userID == "" {
				return errors.New("provide `--user <id>`")
			}

			api := d.NewAPI(g.apiURL, g.token, g.logger(cmd))
			err := api.SubmitSurvey(cmd.Context(), client.SurveyRequest{
				SessionID:    sessionID,
				SubmissionID: submissionID,
				UserID:       userID,
				Rating:       rating,
				Reason:       strings.TrimSpace(reason),
			})
			if err != nil {
				return fmt.Errorf("submit survey: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Thanks for your feedback!")
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Audition session id")
	cmd.Flags().StringVar(&submissionID, "submission", "", "Audition submission id")
	cmd.Flags().StringVarP(&userID, "user", "u", os.Getenv("AUDITION_USER_ID"), "Candidate user id")
	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "Rating from 1 to 5")
	cmd.Flags().StringVar(&reason, "reason", "", "Optional comment")
	return cmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// silentWAV is a one second, 16 kHz mono PCM WAV of silence.
func silentWAV() []byte {
	const (
		rate     = 16000
		dataSize = rate * 2
	)
	b := make([]byte, 44+dataSize)
	le := binary.LittleEndian
	copy(b[0:], "RIFF")
	le.PutUint32(b[4:], 36+dataSize)
	copy(b[8:], "WAVEfmt ")
	le.PutUint32(b[16:], 16)
	le.PutUint16(b[20:], 1) // PCM
	le.PutUint16(b[22:], 1) // mono
	le.PutUint32(b[24:], rate)
	le.PutUint32(b[28:], rate*2)
	le.PutUint16(b[32:], 2)
	le.PutUint16(b[34:], 16)
	copy(b[36:], "data")
	le.PutUint32(b[40:], dataSize)
	return b
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoockh/audition/internal/audition/notify"
	"github.com/yoockh/audition/internal/audition/recorder"
	"github.com/yoockh/audition/internal/audition/session"
	"github.com/yoockh/audition/internal/audition/timer"
	"github.com/yoockh/audition/internal/audition/upload"
	"github.com/yoockh/audition/internal/client"
	"github.com/yoockh/audition/internal/utils"
)

type runOpts struct {
	opportunityID  string
	userID         string
	device         string
	dryRun         bool
	withoutMic     bool
	globalSeconds  int
	warningSeconds int
	quiet          bool
	skipSurvey     bool
}

func newRunCmd(g *globalOpts, d Deps) *cobra.Command {
	o := &runOpts{}

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Take the audition for an opportunity",
		Long: `Take the audition for an opportunity.

Recording starts automatically on every question. While it runs:
  s  stop recording
  n  submit the answer and go to the next question
  r  retry a failed upload
  k  skip the question
  q  quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.opportunityID == "" {
				return errors.New("provide `--opportunity <id>`")
			}
			if o.userID == "" {
				return errors.New("provide `--user <id>` or set AUDITION_USER_ID")
			}
			return runAudition(cmd, g, d, o)
		},
	}

	cmd.Flags().StringVarP(&o.opportunityID, "opportunity", "o", "", "Opportunity id")
	cmd.Flags().StringVarP(&o.userID, "user", "u", envOr("AUDITION_USER_ID", ""), "Candidate user id")
	cmd.Flags().StringVarP(&o.device, "device", "d", "", "ALSA capture device (default device when empty)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Use a silent in-memory microphone")
	cmd.Flags().BoolVar(&o.withoutMic, "continue-without-mic", false, "Continue when the microphone cannot be opened (testing only)")
	cmd.Flags().IntVar(&o.globalSeconds, "global-seconds", 0, "Override the audition clock in seconds")
	cmd.Flags().IntVar(&o.warningSeconds, "warning-seconds", 0, "Remaining seconds at which a question is flagged")
	cmd.Flags().BoolVar(&o.quiet, "quiet", false, "Do not print the clock every second")
	cmd.Flags().BoolVar(&o.skipSurvey, "no-survey", false, "Do not ask for feedback at the end")
	return cmd
}

func runAudition(cmd *cobra.Command, g *globalOpts, d Deps, o *runOpts) error {
	out := &lockedWriter{w: cmd.OutOrStdout()}
	log := g.logger(cmd)
	api := d.NewAPI(g.apiURL, g.token, log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	info, err := api.StartSession(ctx, o.userID, o.opportunityID)
	if err != nil {
		if utils.IsCode(err, utils.CodeConflict) {
			return errors.New("you have already started this audition")
		}
		return fmt.Errorf("start session: %w", err)
	}
	qs := info.Questions
	if len(qs) == 0 {
		if qs, err = api.FetchQuestions(ctx, o.opportunityID); err != nil {
			return fmt.Errorf("fetch questions: %w", err)
		}
	}

	globalSeconds := o.globalSeconds
	if globalSeconds <= 0 {
		globalSeconds = info.GlobalSeconds
	}

	lastIndex := -1
	ctrl, err := session.New(session.Config{
		SessionID:          info.SessionID,
		Questions:          qs,
		GlobalSeconds:      globalSeconds,
		WarningSeconds:     o.warningSeconds,
		AllowWithoutDevice: o.withoutMic,
		OnChange: func(s session.Snapshot) {
			if s.Status != session.StatusInProgress {
				return
			}
			if s.Index != lastIndex {
				lastIndex = s.Index
				fmt.Fprintf(out, "\nQuestion %d of %d (%s)\n  %s\n", s.Index+1, s.Total, s.QuestionClock, s.Question.Text)
				return
			}
			if !o.quiet {
				fmt.Fprintln(out, statusLine(s))
			}
		},
	}, session.Deps{
		Recorder: recorder.New(d.NewDevice(o.device, o.dryRun)),
		Uploader: upload.New(api, o.userID, o.opportunityID, log),
		Notifier: notify.Multi(notify.NewWriterNotifier(out), notify.NewLogNotifier(log)),
		Clock:    d.Clock,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	lines := readLines(cmd.InOrStdin())
	go dispatch(ctrl, lines, cancel, out)

	fmt.Fprintf(out, "Audition %s: %d question(s). Commands: s=stop n=next r=retry k=skip q=quit\n", info.SessionID, len(qs))
	res, runErr := ctrl.Run(ctx)
	if runErr != nil && !res.Status.Terminal() {
		return fmt.Errorf("audition: %w", runErr)
	}

	fmt.Fprintf(out, "\nAudition %s: %d submitted, %d not submitted\n", res.Status, res.Submitted(), res.NotSubmitted())

	endErr := api.EndSession(cmd.Context(), res.SessionID, client.EndSessionRequest{
		UserID:          o.userID,
		Status:          string(res.Status),
		Answered:        res.Submitted(),
		Skipped:         res.NotSubmitted(),
		DurationSeconds: int(res.Duration() / time.Second),
	})
	if endErr != nil {
		log.WithError(endErr).Warn("end session")
		fmt.Fprintf(out, "Could not record the end of the audition: %s\n", utils.MessageOf(endErr))
	}

	if !o.skipSurvey {
		askSurvey(cmd.Context(), api, lines, out, info, o.userID)
	}
	return nil
}

func statusLine(s session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  [%s / %s] total %s | %s", s.QuestionClock, timer.FormatSeconds(s.QuestionLimit), s.GlobalClock, s.Recording)
	if s.Overtime {
		b.WriteString(" | running out of time")
	}
	if s.Uploading {
		b.WriteString(" | uploading")
	}
	if s.LastError != "" {
		b.WriteString(" | upload failed (r=retry, k=skip)")
	}
	return b.String()
}

// readLines feeds stdin into a channel that is closed on EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- strings.TrimSpace(sc.Text())
		}
	}()
	return ch
}

// dispatch turns typed lines into controller commands. Lines typed while an
// answer is uploading wait for the upload to resolve.
func dispatch(ctrl *session.Controller, lines <-chan string, quit context.CancelFunc, out io.Writer) {
	for {
		waitIdle(ctrl)
		select {
		case <-ctrl.Done():
			return
		default:
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctrl.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		var err error
		switch strings.ToLower(line) {
		case "":
			continue
		case "s", "stop":
			err = ctrl.StopRecording()
		case "n", "next":
			err = ctrl.Advance()
		case "r", "retry":
			err = ctrl.Retry()
		case "k", "skip":
			err = ctrl.Skip()
		case "q", "quit":
			quit()
			return
		default:
			fmt.Fprintln(out, "Commands: s=stop n=next r=retry k=skip q=quit")
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "  %s\n", utils.MessageOf(err))
		}
	}
}

// waitIdle blocks until the audition accepts commands or has ended.
func waitIdle(ctrl *session.Controller) {
	for {
		s := ctrl.Snapshot()
		if (s.Status == session.StatusInProgress && !s.Uploading) || s.Status.Terminal() {
			return
		}
		select {
		case <-ctrl.Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func askSurvey(ctx context.Context, api API, lines <-chan string, out io.Writer, info *client.SessionInfo, userID string) {
	fmt.Fprint(out, "How was your audition experience? Rate 1-5 (blank to skip): ")
	line, ok := nextLine(ctx, lines)
	if !ok || line == "" {
		fmt.Fprintln(out)
		return
	}
	rating, err := strconv.Atoi(line)
	if err != nil || rating < 1 || rating > 5 {
		fmt.Fprintln(out, "Skipping feedback: rating must be a number from 1 to 5.")
		return
	}

	fmt.Fprint(out, "Anything we could improve? (optional): ")
	reason, _ := nextLine(ctx, lines)

	err = api.SubmitSurvey(ctx, client.SurveyRequest{
		SessionID:    info.SessionID,
		SubmissionID: info.SubmissionID,
		UserID:       userID,
		Rating:       rating,
		Reason:       reason,
	})
	if err != nil {
		fmt.Fprintf(out, "\nCould not send feedback: %s\n", utils.MessageOf(err))
		return
	}
	fmt.Fprintln(out, "\nThanks for your feedback!")
}

func nextLine(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case l, ok := <-lines:
		return l, ok
	}
}

// lockedWriter serializes writes from the control loop and the input goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/audition/recorder"
	"github.com/yoockh/audition/internal/audition/session"
	"github.com/yoockh/audition/internal/audition/timer"
	"github.com/yoockh/audition/internal/client"
	"github.com/yoockh/audition/internal/utils"
)

type fakeAPI struct {
	mu sync.Mutex

	questions []audition.Question
	startErr  error

	submitted []client.AnswerSubmission
	ended     []client.EndSessionRequest
	surveys   []client.SurveyRequest
}

func (f *fakeAPI) ListOpportunities(context.Context) ([]client.Opportunity, error) {
	return []client.Opportunity{{ID: "opp-1", Company: "Acme", Title: "Voice Actor"}}, nil
}

func (f *fakeAPI) FetchQuestions(context.Context, string) ([]audition.Question, error) {
	return f.questions, nil
}

func (f *fakeAPI) StartSession(_ context.Context, userID, opportunityID string) (*client.SessionInfo, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &client.SessionInfo{SessionID: "sess-1", SubmissionID: "sub-1", OpportunityID: opportunityID, GlobalSeconds: 1800, Questions: f.questions}, nil
}

func (f *fakeAPI) SubmitAnswer(_ context.Context, s client.AnswerSubmission) (*client.AnswerReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, s)
	return &client.AnswerReceipt{AnswerID: "ans-" + s.QuestionID}, nil
}

func (f *fakeAPI) EndSession(_ context.Context, _ string, in client.EndSessionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, in)
	return nil
}

func (f *fakeAPI) SubmitSurvey(_ context.Context, in client.SurveyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surveys = append(f.surveys, in)
	return nil
}

func testDeps(api *fakeAPI, dev recorder.Device) Deps {
	return Deps{
		NewAPI:    func(string, string, *logrus.Logger) API { return api },
		NewDevice: func(string, bool) recorder.Device { return dev },
		Clock:     timer.RealClock(),
	}
}

func execute(t *testing.T, d Deps, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommandWith(d)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandAliases(t *testing.T) {
	root := NewRootCommand()

	tests := []struct {
		input   []string
		wantUse string
	}{
		{[]string{"r"}, "run"},
		{[]string{"q"}, "questions"},
		{[]string{"opps"}, "opportunities"},
		{[]string{"check"}, "check"},
		{[]string{"survey"}, "survey"},
	}
	for _, tc := range tests {
		cmd, _, err := root.Find(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.wantUse, cmd.Name())
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().ShorthandLookup("o"))
	assert.NotNil(t, run.Flags().ShorthandLookup("u"))
	assert.NotNil(t, root.PersistentFlags().Lookup("api"))
}

func TestQuestionsCommandPrintsLimits(t *testing.T) {
	api := &fakeAPI{questions: []audition.Question{
		{ID: "q1", Text: "Introduce yourself", HardLimitSeconds: 90},
		{ID: "q2", Text: "Read the script", HardLimitSeconds: 45},
	}}
	out, err := execute(t, testDeps(api, nil), "", "questions", "-o", "opp-1")
	require.NoError(t, err)
	assert.Contains(t, out, "1. [01:30] Introduce yourself")
	assert.Contains(t, out, "2. [00:45] Read the script")
	assert.Contains(t, out, "2 question(s), 02:15 of answer time")
}

func TestQuestionsCommandRequiresOpportunity(t *testing.T) {
	_, err := execute(t, testDeps(&fakeAPI{}, nil), "", "questions")
	assert.Error(t, err)
}

func TestOpportunitiesCommand(t *testing.T) {
	out, err := execute(t, testDeps(&fakeAPI{}, nil), "", "opportunities")
	require.NoError(t, err)
	assert.Contains(t, out, "opp-1\tAcme\tVoice Actor")
}

func TestCheckCommandReportsDeviceKind(t *testing.T) {
	dev := recorder.NewMemoryDevice(nil, "")
	dev.OpenErr = recorder.ErrPermissionDenied
	out, err := execute(t, testDeps(&fakeAPI{}, dev), "", "check")
	require.Error(t, err)
	assert.Contains(t, out, "Microphone: permission-denied")

	out, err = execute(t, testDeps(&fakeAPI{}, recorder.NewMemoryDevice([]byte("x"), "")), "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Microphone: ready")
}

func TestSurveyCommand(t *testing.T) {
	api := &fakeAPI{}
	out, err := execute(t, testDeps(api, nil), "", "survey", "--session", "sess-1", "-u", "u1", "-r", "5", "--reason", " smooth ")
	require.NoError(t, err)
	assert.Contains(t, out, "Thanks for your feedback!")
	require.Len(t, api.surveys, 1)
	assert.Equal(t, 5, api.surveys[0].Rating)
	assert.Equal(t, "smooth", api.surveys[0].Reason)

	_, err = execute(t, testDeps(api, nil), "", "survey", "-u", "u1", "-r", "5")
	assert.Error(t, err)
}

func TestRunCommandCompletesAudition(t *testing.T) {
	api := &fakeAPI{questions: []audition.Question{
		{ID: "q1", Text: "Introduce yourself", HardLimitSeconds: 90, Position: 0},
		{ID: "q2", Text: "Read the script", HardLimitSeconds: 90, Position: 1},
	}}
	dev := recorder.NewMemoryDevice([]byte("RIFF"), "audio/wav")

	out, err := execute(t, testDeps(api, dev), "n\nn\n4\nsmooth\n", "run", "-o", "opp-1", "-u", "u1", "--quiet")
	require.NoError(t, err)

	assert.Contains(t, out, "Question 1 of 2")
	assert.Contains(t, out, "Question 2 of 2")
	assert.Contains(t, out, "Audition completed: 2 submitted, 0 not submitted")
	assert.Contains(t, out, "Thanks for your feedback!")

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.submitted, 2)
	assert.Equal(t, "q2", api.submitted[1].QuestionID)
	assert.Equal(t, 1, api.submitted[1].QuestionIndex)
	require.Len(t, api.ended, 1)
	assert.Equal(t, "completed", api.ended[0].Status)
	assert.Equal(t, 2, api.ended[0].Answered)
	require.Len(t, api.surveys, 1)
	assert.Equal(t, 4, api.surveys[0].Rating)
	assert.Equal(t, "smooth", api.surveys[0].Reason)
	assert.Equal(t, "sub-1", api.surveys[0].SubmissionID)
	assert.Equal(t, 1, dev.Closes())
}

func TestRunCommandDuplicateSession(t *testing.T) {
	api := &fakeAPI{startErr: utils.E(utils.CodeConflict, "Client.StartSession", "audition already started", nil)}
	_, err := execute(t, testDeps(api, nil), "", "run", "-o", "opp-1", "-u", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestRunCommandWithoutMicrophoneFails(t *testing.T) {
	api := &fakeAPI{questions: []audition.Question{{ID: "q1", Text: "Hi"}}}
	dev := recorder.NewMemoryDevice(nil, "")
	dev.OpenErr = recorder.ErrNoDevice

	out, err := execute(t, testDeps(api, dev), "", "run", "-o", "opp-1", "-u", "u1")
	require.Error(t, err)
	assert.Contains(t, out, "Microphone unavailable")
	assert.Empty(t, api.ended)
}

func TestSilentWAVHeader(t *testing.T) {
	b := silentWAV()
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Len(t, b, 44+32000)
}

func TestStatusLineShowsLimitAndFlags(t *testing.T) {
	line := statusLine(session.Snapshot{
		QuestionClock: "00:20",
		QuestionLimit: 90,
		GlobalClock:   "29:10",
		Recording:     recorder.Recording,
		Overtime:      true,
		LastError:     "backend unreachable",
	})
	assert.Contains(t, line, "[00:20 / 01:30] total 29:10")
	assert.Contains(t, line, "running out of time")
	assert.Contains(t, line, "upload failed")
}

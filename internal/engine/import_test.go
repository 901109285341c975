package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/testutil"
)

func TestImport_EmptyPayloadEmptiesStore(t *testing.T) {
	src := newFixture(t)
	dst := newFixture(t)
	dst.seed(t, testutil.Goal("g", "G", t0))

	summary, err := dst.engine.Import(context.Background(), src.export(t), true)
	require.NoError(t, err)

	assert.Equal(t, ImportSummary{}, summary)
	assert.Empty(t, dst.export(t).Goals)
	assert.Equal(t, []string{"g"}, dst.sched.Cancelled())
}

func TestImport_RoundTripIntoFreshStore(t *testing.T) {
	src := newFixture(t)
	src.seed(t,
		testutil.RichGoal("g-rich", t0),
		testutil.Goal("g-a", "Alpha", t0),
		testutil.Goal("g-b", "Beta", t1),
	)
	exported := src.export(t)

	// Through the wire format, as a backup file would travel.
	data, err := payload.Marshal(exported)
	require.NoError(t, err)
	decoded, err := payload.Unmarshal(data)
	require.NoError(t, err)

	dst := newFixture(t)
	summary, err := dst.engine.Import(context.Background(), decoded, true)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.GoalsImported)
	assert.Equal(t, exported.DataPointCount(), summary.DataPointsImported)
	assert.Equal(t, exported.Goals, dst.export(t).Goals)
}

func TestImport_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := testutil.Payload(t0, testutil.RichGoal("g-rich", t0), testutil.Goal("g", "G", t1))

	_, err := f.engine.Import(context.Background(), p, true)
	require.NoError(t, err)
	once := f.export(t)

	_, err = f.engine.Import(context.Background(), p, true)
	require.NoError(t, err)
	twice := f.export(t)

	assert.Equal(t, once, twice)
}

func TestImport_UnsupportedVersionMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g", "G", t0))
	before := f.export(t)

	p := testutil.Payload(t0)
	p.Version = payload.FormatVersion + 1
	_, err := f.engine.Import(context.Background(), p, true)

	require.Error(t, err)
	assert.True(t, payload.IsUnsupportedVersion(err))
	assert.Equal(t, before, f.export(t))
	assert.Empty(t, f.sched.Calls())
}

func TestImport_MalformedPayloadMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g", "G", t0))
	before := f.export(t)

	bad := testutil.Goal("g2", "Bad", t0)
	bad.DataPoints[0].GoalID = "elsewhere"
	_, err := f.engine.Import(context.Background(), testutil.Payload(t0, bad), true)

	require.Error(t, err)
	assert.True(t, payload.IsMalformed(err))
	assert.Equal(t, before, f.export(t))

	_, err = f.engine.Import(context.Background(), nil, true)
	assert.True(t, payload.IsMalformed(err))
}

func TestImport_WithoutReplaceRejectsLiveID(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g", "Original", t0))
	before := f.export(t)

	incoming := testutil.Payload(t0,
		testutil.Goal("g-new", "New", t0),
		testutil.Goal("g", "Impostor", t1),
	)
	_, err := f.engine.Import(context.Background(), incoming, false)

	require.Error(t, err)
	assert.True(t, IsGoalAlreadyExists(err))
	assert.Equal(t, before, f.export(t), "g-new must be rolled back too")
}

func TestImport_WithoutReplaceAddsGoals(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g1", "One", t0))

	summary, err := f.engine.Import(context.Background(), testutil.Payload(t0, testutil.Goal("g2", "Two", t1)), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GoalsImported)
	assert.Equal(t, []string{"g1", "g2"}, f.export(t).GoalIDs())
	assert.Empty(t, f.sched.Cancelled())
}

func TestImport_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g1", "One", t0))
	before := f.export(t)

	// Valid on its own, but g3's question id collides with live g1's.
	g3 := testutil.Goal("g3", "Three", t1)
	g3.Questions[0].ID = "g1-q"
	g3.DataPoints[0].QuestionID = "g1-q"
	incoming := testutil.Payload(t0, testutil.Goal("g2", "Two", t0), g3)

	_, err := f.engine.Import(context.Background(), incoming, false)

	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.Equal(t, before, f.export(t))
	assert.Empty(t, f.sched.Calls(), "nothing is scheduled for a rolled-back import")
}

func TestImport_SchedulesActiveGoalsOnly(t *testing.T) {
	f := newFixture(t)
	active := testutil.Goal("g-on", "On", t0)
	paused := testutil.Goal("g-off", "Off", t0)
	paused.IsActive = false

	_, err := f.engine.Import(context.Background(), testutil.Payload(t0, active, paused), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"g-on"}, f.sched.Scheduled())
}

func TestImport_SchedulerFailureDoesNotUndoCommit(t *testing.T) {
	f := newFixture(t)
	f.sched.FailSchedule = errors.New("notification service down")

	summary, err := f.engine.Import(context.Background(),
		testutil.Payload(t0, testutil.Goal("g1", "One", t0), testutil.Goal("g2", "Two", t0)), true)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.NotificationFailures)
	assert.Equal(t, []string{"g1", "g2"}, f.export(t).GoalIDs())
}

func TestImport_ReplaceCancelsRemovedGoals(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g-keep", "Keep", t0), testutil.Goal("g-drop", "Drop", t0))

	_, err := f.engine.Import(context.Background(), testutil.Payload(t0, testutil.Goal("g-keep", "Keep", t0)), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"g-drop"}, f.sched.Cancelled())
	assert.Equal(t, []string{"g-keep"}, f.sched.Scheduled())
}

func TestImport_KeepsTrash(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.Goal("g", "G", t0))
	_, err := f.engine.MoveToTrash(context.Background(), "g", "")
	require.NoError(t, err)

	_, err = f.engine.Import(context.Background(), testutil.Payload(t0), true)
	require.NoError(t, err)

	items, err := f.engine.ListTrash(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRemovedIDs(t *testing.T) {
	assert.Equal(t, []string{"b"}, removedIDs([]string{"a", "b"}, []string{"a", "c"}))
	assert.Nil(t, removedIDs(nil, []string{"a"}))
}

func TestImport_AnswerOfRetypedQuestion(t *testing.T) {
	f := newFixture(t)
	g := testutil.Goal("g", "Reading", t0)
	g.Title = ""
	g.Questions[0].Type = payload.ResponseText
	g.Questions[0].Text = ""

	summary, err := f.engine.Import(context.Background(), testutil.Payload(t0, g), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DataPointsImported)

	got := f.export(t).Goals
	require.Len(t, got, 1)
	assert.Equal(t, payload.NumericValue{Value: 1}, got[0].DataPoints[0].Value)
	assert.Equal(t, payload.ResponseText, got[0].Questions[0].Type)
	assert.Empty(t, got[0].Title)
}

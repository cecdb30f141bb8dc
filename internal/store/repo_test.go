package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func ip(v int) *int             { return &v }
func sp(v string) *string       { return &v }

func sampleTopic(id string) TopicRecord {
	return TopicRecord{
		ID:               id,
		Topic:            "Graph algorithms",
		IntegrityPercent: 100,
		DecayState:       "fresh",
		NextReviewAt:     tp(testNow.AddDate(0, 0, 1)),
		Priority:         "high",
		Model:            "level",
		CreatedAt:        testNow,
	}
}

func sampleTask(id string) TaskRecord {
	return TaskRecord{
		ID:                  id,
		Name:                "Write report",
		TimeEstimateMinutes: 30,
		DecayCost:           1,
		Status:              "pending",
		ScheduledDate:       "2024-01-10",
		CreatedAt:           testNow,
	}
}

func TestTopicRepo_CRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Repos().Topics

	require.NoError(t, repo.Create(ctx, sampleTopic("t-1")))

	got, err := repo.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Graph algorithms", got.Topic)
	assert.Equal(t, "high", got.Priority)
	require.NotNil(t, got.NextReviewAt)
	assert.True(t, got.NextReviewAt.Equal(testNow.AddDate(0, 0, 1)))
	assert.Nil(t, got.LastReviewedAt)
	assert.Nil(t, got.ConfidenceLevel)

	got.Level = 3
	got.ReviewCount = 2
	got.LastReviewedAt = tp(testNow)
	got.ConfidenceLevel = ip(80)
	require.NoError(t, repo.Update(ctx, *got))

	got, err = repo.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 2, got.ReviewCount)
	require.NotNil(t, got.ConfidenceLevel)
	assert.Equal(t, 80, *got.ConfidenceLevel)

	require.NoError(t, repo.Delete(ctx, "t-1"))
	_, err = repo.Get(ctx, "t-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, "t-1"), ErrNotFound))
}

func TestTopicRepo_DueAtBoundary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Repos().Topics

	due := sampleTopic("due")
	due.NextReviewAt = tp(testNow)
	later := sampleTopic("later")
	later.NextReviewAt = tp(testNow.Add(time.Millisecond))
	unscheduled := sampleTopic("none")
	unscheduled.NextReviewAt = nil

	for _, topic := range []TopicRecord{due, later, unscheduled} {
		require.NoError(t, repo.Create(ctx, topic))
	}

	topics, err := repo.DueAt(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "due", topics[0].ID)
}

func TestTopicRepo_Resolve(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Repos().Topics

	require.NoError(t, repo.Create(ctx, sampleTopic("abc123")))
	require.NoError(t, repo.Create(ctx, sampleTopic("abd456")))

	id, err := repo.Resolve(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = repo.Resolve(ctx, "ab")
	assert.True(t, errors.Is(err, ErrAmbiguousID))

	_, err = repo.Resolve(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRevisionRepo_ClosedExactlyOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repos := s.Repos()

	require.NoError(t, repos.Topics.Create(ctx, sampleTopic("t-1")))
	require.NoError(t, repos.Revisions.Append(ctx, RevisionRecord{
		ID: "r-1", TopicID: "t-1", ScheduledAt: testNow,
	}))

	open, err := repos.Revisions.Open(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", open.ID)
	assert.True(t, open.IsOpen())

	open.CompletedAt = tp(testNow.Add(time.Hour))
	open.Feedback = "good"
	require.NoError(t, repos.Revisions.Complete(ctx, *open))

	// A closed revision cannot be closed again.
	assert.True(t, errors.Is(repos.Revisions.MarkMissed(ctx, "r-1"), ErrNotFound))
	assert.True(t, errors.Is(repos.Revisions.Complete(ctx, *open), ErrNotFound))

	_, err = repos.Revisions.Open(ctx, "t-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	revs, err := repos.Revisions.ListByTopic(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "good", revs[0].Feedback)
	require.NotNil(t, revs[0].CompletedAt)
	assert.False(t, revs[0].WasMissed)
}

func TestRevisionRepo_MarkMissed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repos := s.Repos()

	require.NoError(t, repos.Topics.Create(ctx, sampleTopic("t-1")))
	require.NoError(t, repos.Revisions.Append(ctx, RevisionRecord{ID: "r-1", TopicID: "t-1", ScheduledAt: testNow}))
	require.NoError(t, repos.Revisions.MarkMissed(ctx, "r-1"))

	revs, err := repos.Revisions.ListByTopic(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.True(t, revs[0].WasMissed)
	assert.Nil(t, revs[0].CompletedAt)
	assert.False(t, revs[0].IsOpen())
}

func TestRevisionRepo_CascadeOnTopicDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repos := s.Repos()

	require.NoError(t, repos.Topics.Create(ctx, sampleTopic("t-1")))
	require.NoError(t, repos.Revisions.Append(ctx, RevisionRecord{ID: "r-1", TopicID: "t-1", ScheduledAt: testNow}))
	require.NoError(t, repos.Topics.Delete(ctx, "t-1"))

	revs, err := repos.Revisions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestTaskRepo_CRUDAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Repos().Tasks

	a := sampleTask("a")
	a.ScheduledTime = sp("09:00")
	a.Priority = ip(2)
	b := sampleTask("b")
	b.ScheduledDate = "2024-01-11"
	b.IsRecovery = true
	b.OriginalTaskID = sp("a")
	b.DecayCost = 3
	for _, task := range []TaskRecord{a, b} {
		require.NoError(t, repo.Create(ctx, task))
	}

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledTime)
	assert.Equal(t, "09:00", *got.ScheduledTime)
	require.NotNil(t, got.Priority)
	assert.Equal(t, 2, *got.Priority)
	assert.Nil(t, got.OriginalTaskID)

	day, err := repo.List(ctx, TaskFilter{Date: "2024-01-10"})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "a", day[0].ID)

	recs, err := repo.RecoveriesOf(ctx, "a")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].ID)
	assert.True(t, recs[0].IsRecovery)
	assert.Equal(t, 3, recs[0].DecayCost)

	got.Status = "completed"
	got.CompletedAt = tp(testNow)
	require.NoError(t, repo.Update(ctx, *got))

	completed, err := repo.List(ctx, TaskFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].CompletedAt)

	all, err := repo.List(ctx, TaskFilter{FromDate: "2024-01-10", ToDate: "2024-01-11"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTimelineRepo_AppendAssignsSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Repos().Timeline

	first, err := repo.Append(ctx, TimelineRecord{ID: "e-1", EntryType: "thought", Title: "one", CreatedAt: testNow})
	require.NoError(t, err)
	second, err := repo.Append(ctx, TimelineRecord{ID: "e-2", EntryType: "planner_failure", ReferenceID: "task-1", Title: "two", WasAvoided: true, CreatedAt: testNow})
	require.NoError(t, err)
	assert.Greater(t, second.Sequence, first.Sequence)

	recent, err := repo.Query(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e-2", recent[0].ID, "newest first")

	filtered, err := repo.Query(ctx, QueryOpts{Types: []string{"thought"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "e-1", filtered[0].ID)

	limited, err := repo.Query(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byRef, err := repo.ListByReference(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.True(t, byRef[0].WasAvoided)

	byRef[0].Title = "two (deleted)"
	require.NoError(t, repo.Update(ctx, byRef[0]))
	byRef, err = repo.ListByReference(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "two (deleted)", byRef[0].Title)

	n, err := repo.DeleteByReference(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTx_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Tx(ctx, func(r Repos) error {
		if err := r.Tasks.Create(ctx, sampleTask("a")); err != nil {
			return err
		}
		if _, err := r.Timeline.Append(ctx, TimelineRecord{ID: "e-1", EntryType: "thought", Title: "x", CreatedAt: testNow}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Repos().Tasks.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))
	entries, err := s.Repos().Timeline.Query(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCaptureAndRestore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repos := s.Repos()

	require.NoError(t, repos.Topics.Create(ctx, sampleTopic("t-1")))
	require.NoError(t, repos.Revisions.Append(ctx, RevisionRecord{ID: "r-1", TopicID: "t-1", ScheduledAt: testNow}))
	require.NoError(t, repos.Tasks.Create(ctx, sampleTask("a")))
	_, err := repos.Timeline.Append(ctx, TimelineRecord{ID: "e-1", EntryType: "thought", Title: "keep", CreatedAt: testNow})
	require.NoError(t, err)

	snap, err := s.TakeSnapshot(ctx, "before", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Sequence)

	// Mutate after the snapshot.
	require.NoError(t, repos.Tasks.Delete(ctx, "a"))
	require.NoError(t, repos.Tasks.Create(ctx, sampleTask("b")))
	_, err = repos.Timeline.Append(ctx, TimelineRecord{ID: "e-2", EntryType: "thought", Title: "drop", CreatedAt: testNow})
	require.NoError(t, err)

	saved, err := s.SnapshotRepo().Latest(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Restore(ctx, saved.Data))

	tasks, err := repos.Tasks.List(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].ID)

	revs, err := repos.Revisions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, revs, 1)

	entries, err := repos.Timeline.Query(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e-1", entries[0].ID)

	// New entries continue after the highest sequence ever issued.
	next, err := repos.Timeline.Append(ctx, TimelineRecord{ID: "e-3", EntryType: "thought", Title: "after", CreatedAt: testNow})
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.Sequence)
}

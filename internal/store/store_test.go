package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fullStore interface {
	JobStore
	UserStore
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) fullStore { return NewMemoryStore() })
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BLASTFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BLASTFLOW_TEST_POSTGRES_DSN not set")
	}

	runStoreContract(t, func(t *testing.T) fullStore {
		s, err := NewPostgresStore(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) fullStore) {
	t.Run("job lifecycle", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := createUser(t, s)

		job := newJob(user.ID, time.Now().UTC())
		require.NoError(t, s.CreateJob(ctx, job))

		got, ok, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.JobStatusRunning, got.Status)
		assert.Equal(t, 0, got.Progress)
		assert.Equal(t, user.Username, got.Username)

		require.NoError(t, s.UpdateProgress(ctx, job.ID, 50))
		got, _, _ = s.GetJob(ctx, job.ID)
		assert.Equal(t, 50, got.Progress)
		assert.Equal(t, domain.JobStatusRunning, got.Status)

		require.NoError(t, s.MarkDone(ctx, job.ID))
		got, _, _ = s.GetJob(ctx, job.ID)
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, domain.JobStatusDone, got.Status)
	})

	t.Run("missing job", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, ok, err := s.GetJob(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, s.MarkRunning(ctx, "does-not-exist"), ErrJobNotFound)
		assert.ErrorIs(t, s.UpdateProgress(ctx, "does-not-exist", 10), ErrJobNotFound)
		assert.ErrorIs(t, s.MarkDone(ctx, "does-not-exist"), ErrJobNotFound)
		assert.ErrorIs(t, s.DeleteJob(ctx, "does-not-exist"), ErrJobNotFound)
	})

	t.Run("mark running keeps progress", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := createUser(t, s)
		job := newJob(user.ID, time.Now().UTC())
		require.NoError(t, s.CreateJob(ctx, job))

		require.NoError(t, s.UpdateProgress(ctx, job.ID, 40))
		require.NoError(t, s.MarkRunning(ctx, job.ID))

		got, ok, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 40, got.Progress)
		assert.Equal(t, domain.JobStatusRunning, got.Status)
	})

	t.Run("results keep insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := createUser(t, s)
		job := newJob(user.ID, time.Now().UTC())
		require.NoError(t, s.CreateJob(ctx, job))

		for _, acc := range []string{"P01308", "BAD1", "Q9XYZ1"} {
			require.NoError(t, s.AppendResult(ctx, domain.ResultRecord{
				JobID:     job.ID,
				Accession: acc,
				TopHit:    "NA",
				Gene:      "NA",
				Species:   "NA",
				BitScore:  "NA",
				EValue:    "NA",
			}))
		}

		results, err := s.ListResults(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "P01308", results[0].Accession)
		assert.Equal(t, "BAD1", results[1].Accession)
		assert.Equal(t, "Q9XYZ1", results[2].Accession)
		assert.Less(t, results[0].ID, results[1].ID)
	})

	t.Run("delete removes job and results", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := createUser(t, s)
		job := newJob(user.ID, time.Now().UTC())
		require.NoError(t, s.CreateJob(ctx, job))
		require.NoError(t, s.AppendResult(ctx, domain.ResultRecord{JobID: job.ID, Accession: "P01308"}))

		require.NoError(t, s.DeleteJob(ctx, job.ID))

		_, ok, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		results, err := s.ListResults(ctx, job.ID)
		require.NoError(t, err)
		assert.Empty(t, results)

		// A runner still in flight keeps appending.
		require.NoError(t, s.AppendResult(ctx, domain.ResultRecord{JobID: job.ID, Accession: "late"}))
		assert.ErrorIs(t, s.UpdateProgress(ctx, job.ID, 75), ErrJobNotFound)
	})

	t.Run("list jobs newest first and filtered by owner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		alice := createUser(t, s)
		bob := createUser(t, s)

		base := time.Now().UTC().Truncate(time.Millisecond)
		older := newJob(alice.ID, base.Add(-time.Minute))
		newer := newJob(alice.ID, base)
		other := newJob(bob.ID, base.Add(-30*time.Second))
		for _, job := range []domain.Job{older, newer, other} {
			require.NoError(t, s.CreateJob(ctx, job))
		}

		own, err := s.ListJobs(ctx, JobFilter{UserID: alice.ID})
		require.NoError(t, err)
		require.Len(t, own, 2)
		assert.Equal(t, newer.ID, own[0].ID)
		assert.Equal(t, older.ID, own[1].ID)

		all, err := s.ListJobs(ctx, JobFilter{All: true})
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, job := range all {
			ids = append(ids, job.ID)
		}
		assert.Contains(t, ids, other.ID)
		assert.Contains(t, ids, newer.ID)
	})

	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		user := createUser(t, s)
		assert.NotZero(t, user.ID)

		_, err := s.CreateUser(ctx, domain.User{Username: user.Username, PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrUserExists)

		got, ok, err := s.GetUserByName(ctx, user.Username)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)

		byID, ok, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, user.Username, byID.Username)

		_, ok, err = s.GetUserByName(ctx, "nobody-"+id.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func createUser(t *testing.T, s UserStore) domain.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), domain.User{
		Username:     "user-" + id.New(),
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return user
}

func newJob(userID int64, createdAt time.Time) domain.Job {
	return domain.Job{
		ID:        id.New(),
		UserID:    userID,
		Organism:  domain.DefaultOrganism,
		Status:    domain.JobStatusRunning,
		CreatedAt: createdAt,
	}
}

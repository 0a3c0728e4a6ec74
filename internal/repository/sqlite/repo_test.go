package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	relationuc "github.com/NordCoder/Tubely/internal/services/api-gateway/relation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "tubely_test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newIdentity(handle string) *identity.Identity {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &identity.Identity{
		ID:           uuid.New(),
		Handle:       handle,
		Email:        handle + "@example.com",
		FullName:     "Test " + handle,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestIdentityRepo(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewIdentityRepo(db)

	alice := newIdentity("alice")
	require.NoError(t, repo.Create(ctx, alice))

	err := repo.Create(ctx, newIdentity("alice"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	dupEmail := newIdentity("alice2")
	dupEmail.Email = alice.Email
	err = repo.Create(ctx, dupEmail)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Handle, got.Handle)
	assert.Empty(t, got.RefreshTokenHash)

	got, err = repo.GetByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, repo.Ping(ctx))
}

func TestIdentityRepoLoginPrefersHandle(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepo(openTestDB(t))

	// an email-shaped identifier stored as another identity's handle cannot
	// be produced through registration, but the store still orders matches.
	byEmail := newIdentity("bob")
	byEmail.Email = "carol"
	require.NoError(t, repo.Create(ctx, byEmail))
	byHandle := newIdentity("carol")
	require.NoError(t, repo.Create(ctx, byHandle))

	got, err := repo.GetByLogin(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, byHandle.ID, got.ID)
}

func TestIdentityRepoRefreshRotation(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepo(openTestDB(t))
	u := newIdentity("alice")
	require.NoError(t, repo.Create(ctx, u))

	ok, err := repo.RotateRefreshToken(ctx, u.ID, "h1", "h2")
	require.NoError(t, err)
	assert.False(t, ok, "nothing stored yet")

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "h1"))

	ok, err = repo.RotateRefreshToken(ctx, u.ID, "h1", "h2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RotateRefreshToken(ctx, u.ID, "h1", "h3")
	require.NoError(t, err)
	assert.False(t, ok, "rotated-out digest must not match")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.RefreshTokenHash)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash", false))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, "h2", got.RefreshTokenHash)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "newer-hash", true))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RefreshTokenHash)

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "h4"))
	require.NoError(t, repo.ClearRefreshToken(ctx, u.ID))
	ok, err = repo.RotateRefreshToken(ctx, u.ID, "h4", "h5")
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.SetRefreshToken(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRelationRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewRelationRepo(openTestDB(t))

	actor, target := uuid.New(), uuid.New()
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

	_, err := repo.Find(ctx, actor, target, relation.KindVideoLike)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	rel := &relation.Relation{ID: uuid.New(), ActorID: actor, TargetID: target, Kind: relation.KindVideoLike, CreatedAt: base}
	require.NoError(t, repo.Insert(ctx, rel))

	dup := &relation.Relation{ID: uuid.New(), ActorID: actor, TargetID: target, Kind: relation.KindVideoLike, CreatedAt: base}
	assert.ErrorIs(t, repo.Insert(ctx, dup), apperr.ErrConflict)

	got, err := repo.Find(ctx, actor, target, relation.KindVideoLike)
	require.NoError(t, err)
	assert.Equal(t, rel.ID, got.ID)
	assert.True(t, base.Equal(got.CreatedAt))

	n, err := repo.Count(ctx, target, relation.KindVideoLike)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.Count(ctx, target, relation.KindTweetLike)
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err := repo.Delete(ctx, actor, target, relation.KindVideoLike)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, actor, target, relation.KindVideoLike)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRelationRepoListing(t *testing.T) {
	ctx := context.Background()
	repo := NewRelationRepo(openTestDB(t))

	channel := uuid.New()
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	var subs []uuid.UUID
	for i := 0; i < 5; i++ {
		s := uuid.New()
		subs = append(subs, s)
		require.NoError(t, repo.Insert(ctx, &relation.Relation{
			ID: uuid.New(), ActorID: s, TargetID: channel, Kind: relation.KindSubscription,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := repo.ListByTarget(ctx, channel, relation.KindSubscription, relation.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, subs[3], page[0].ActorID)
	assert.Equal(t, subs[2], page[1].ActorID)

	mine, err := repo.ListByActor(ctx, subs[0], relation.KindSubscription, relation.Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, channel, mine[0].TargetID)

	none, err := repo.ListByActor(ctx, subs[0], relation.KindVideoLike, relation.Page{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestToggleOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	uc := relationuc.New(NewRelationRepo(db), NewTransactor(db), nil, nil)

	actor, video := uuid.New(), uuid.New()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Toggle(ctx, actor, string(relation.KindVideoLike), video.String())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// an even number of toggles returns to the starting state
	count, err := uc.Count(ctx, string(relation.KindVideoLike), video.String())
	require.NoError(t, err)
	assert.Zero(t, count)

	res, err := uc.Toggle(ctx, actor, string(relation.KindVideoLike), video.String())
	require.NoError(t, err)
	require.NotNil(t, res.Created)

	count, err = uc.Count(ctx, string(relation.KindVideoLike), video.String())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestTransactorRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRelationRepo(db)
	tx := NewTransactor(db)

	target := uuid.New()
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.Insert(ctx, &relation.Relation{
			ID: uuid.New(), ActorID: uuid.New(), TargetID: target, Kind: relation.KindTweetLike, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return apperr.BadRequest("abort")
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	n, err := repo.Count(ctx, target, relation.KindTweetLike)
	require.NoError(t, err)
	assert.Zero(t, n)
}

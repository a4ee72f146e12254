package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"reach_server/core/domain"
	"reach_server/pkg/apperr"
	"reach_server/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accountCols = []string{"creator_id", "platform", "handle", "followers", "following", "posts", "engagement_rate", "quality_score", "fetched_at"}
	tierCols    = []string{"creator_id", "tier", "tier_name", "total_followers", "engagement_rate", "quality_score",
		"meets_requirements", "reason", "commission_rate", "trace", "calculated_at"}
)

func TestCreatorAdapter_UpsertSocialAccount(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engagement, quality := 3.5, 80.0

	mock.ExpectExec("INSERT INTO creator_social_accounts .* ON CONFLICT \\(creator_id, platform\\) DO UPDATE").
		WithArgs(creator, "instagram", "jane", int64(150000), nil, nil, engagement, quality, fetched).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewCreatorAdapter(db).UpsertSocialAccount(context.Background(), &domain.CreatorSocialAccount{
		CreatorID:      creator,
		Platform:       domain.PlatformInstagram,
		Handle:         "jane",
		Followers:      150000,
		EngagementRate: &engagement,
		QualityScore:   &quality,
		FetchedAt:      fetched,
	})
	require.NoError(t, err)
}

func TestCreatorAdapter_ListAllSocialAccountsGroupsByCreator(t *testing.T) {
	db, mock := newMockDB(t)
	a, b := uuid.New(), uuid.New()
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM creator_social_accounts ORDER BY creator_id, platform").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(a.String(), "instagram", "jane", int64(150000), int64(300), int64(1200), 3.5, 80.0, fetched).
			AddRow(a.String(), "twitter", "jane", int64(9000), nil, nil, nil, nil, fetched).
			AddRow(b.String(), "tiktok", "bob", int64(20000), nil, nil, 2.0, nil, fetched))

	got, err := NewCreatorAdapter(db).ListAllSocialAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[a], 2)
	require.Len(t, got[b], 1)

	ig := got[a][0]
	assert.Equal(t, domain.PlatformInstagram, ig.Platform)
	require.NotNil(t, ig.Following)
	assert.Equal(t, int64(300), *ig.Following)

	tw := got[a][1]
	assert.Nil(t, tw.Following)
	assert.Nil(t, tw.EngagementRate)
	assert.Nil(t, tw.QualityScore)
}

func TestCreatorAdapter_GetTierNeverEvaluated(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()

	mock.ExpectQuery("FROM creator_tiers WHERE creator_id = \\$1").
		WithArgs(creator).
		WillReturnError(sql.ErrNoRows)

	tier, err := NewCreatorAdapter(db).GetTier(context.Background(), creator)
	require.NoError(t, err)
	assert.Nil(t, tier)
}

func TestCreatorAdapter_GetTier(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()
	calculated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM creator_tiers WHERE creator_id = \\$1").
		WithArgs(creator).
		WillReturnRows(sqlmock.NewRows(tierCols).
			AddRow(creator.String(), int64(2), "Gold", int64(120000), 1.5, 80.0, true, "", 0.04,
				[]byte(`{"rule":"followers_only"}`), calculated))

	tier, err := NewCreatorAdapter(db).GetTier(context.Background(), creator)
	require.NoError(t, err)
	require.NotNil(t, tier.Result.Tier)
	assert.Equal(t, domain.Tier2, *tier.Result.Tier)
	assert.Equal(t, "followers_only", tier.Result.Trace.Rule)
	assert.Equal(t, calculated, tier.CalculatedAt)
}

func TestCreatorAdapter_GetTierCorruptTraceIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{Level: logger.LevelInfo, Output: &buf})
	t.Cleanup(func() { logger.Init(logger.Config{Level: logger.LevelInfo}) })

	db, mock := newMockDB(t)
	creator := uuid.New()
	mock.ExpectQuery("FROM creator_tiers").
		WithArgs(creator).
		WillReturnRows(sqlmock.NewRows(tierCols).
			AddRow(creator.String(), int64(3), "Silver", int64(60000), 2.5, 80.0, true, "", 0.03,
				[]byte(`{"rule":`), time.Now()))

	tier, err := NewCreatorAdapter(db).GetTier(context.Background(), creator)
	require.NoError(t, err)
	require.NotNil(t, tier.Result.Tier)
	assert.Equal(t, domain.Tier3, *tier.Result.Tier)
	assert.Empty(t, tier.Result.Trace.Rule)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "unreadable tier trace")
	assert.Contains(t, buf.String(), creator.String())
}

func TestCreatorAdapter_GetTierDisqualified(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()

	mock.ExpectQuery("FROM creator_tiers").
		WithArgs(creator).
		WillReturnRows(sqlmock.NewRows(tierCols).
			AddRow(creator.String(), nil, domain.NotQualifiedName, int64(1200), 3.0, 70.0, false, "below minimum", 0.0, nil, time.Now()))

	tier, err := NewCreatorAdapter(db).GetTier(context.Background(), creator)
	require.NoError(t, err)
	assert.Nil(t, tier.Result.Tier)
	assert.False(t, tier.Result.MeetsRequirements)
}

func TestCreatorAdapter_SaveTier(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()
	calculated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := domain.Tier1

	mock.ExpectExec("INSERT INTO creator_tiers .* ON CONFLICT \\(creator_id\\) DO UPDATE").
		WithArgs(creator, int64(1), "Platinum", int64(150000), 3.5, 80.0, true, "", 0.05, `{"rule":"standard"}`, calculated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewCreatorAdapter(db).SaveTier(context.Background(), &domain.CreatorTier{
		CreatorID: creator,
		Result: domain.TierResult{
			Tier:              &t1,
			TierName:          "Platinum",
			TotalFollowers:    150000,
			EngagementRate:    3.5,
			QualityScore:      80,
			MeetsRequirements: true,
			CommissionRate:    0.05,
			Trace:             domain.DecisionTrace{Rule: "standard"},
		},
		CalculatedAt: calculated,
	})
	require.NoError(t, err)
}

func TestCreatorAdapter_DatabaseErrorIsWrapped(t *testing.T) {
	db, mock := newMockDB(t)
	creator := uuid.New()

	mock.ExpectQuery("FROM creator_social_accounts WHERE creator_id = \\$1").
		WithArgs(creator).
		WillReturnError(errors.New("connection refused"))

	_, err := NewCreatorAdapter(db).ListSocialAccounts(context.Background(), creator)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.GetHTTPStatus(err))
	assert.Equal(t, apperr.CodeDatabaseError, apperr.AsAppError(err).Code)
}

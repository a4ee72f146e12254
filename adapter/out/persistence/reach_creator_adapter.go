package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"reach_server/core/domain"
	"reach_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreatorAdapter implements domain.CreatorRepository using PostgreSQL.
type CreatorAdapter struct {
	db *sqlx.DB
}

// NewCreatorAdapter creates a new creator adapter.
func NewCreatorAdapter(db *sqlx.DB) *CreatorAdapter {
	return &CreatorAdapter{db: db}
}

const socialAccountColumns = `creator_id, platform, handle, followers, following, posts, engagement_rate, quality_score, fetched_at`

type socialAccountRow struct {
	CreatorID      uuid.UUID       `db:"creator_id"`
	Platform       string          `db:"platform"`
	Handle         string          `db:"handle"`
	Followers      int64           `db:"followers"`
	Following      sql.NullInt64   `db:"following"`
	Posts          sql.NullInt64   `db:"posts"`
	EngagementRate sql.NullFloat64 `db:"engagement_rate"`
	QualityScore   sql.NullFloat64 `db:"quality_score"`
	FetchedAt      time.Time       `db:"fetched_at"`
}

func (r *socialAccountRow) toDomain() *domain.CreatorSocialAccount {
	a := &domain.CreatorSocialAccount{
		CreatorID: r.CreatorID,
		Platform:  domain.Platform(r.Platform),
		Handle:    r.Handle,
		Followers: r.Followers,
		FetchedAt: r.FetchedAt,
	}
	if r.Following.Valid {
		a.Following = &r.Following.Int64
	}
	if r.Posts.Valid {
		a.Posts = &r.Posts.Int64
	}
	if r.EngagementRate.Valid {
		a.EngagementRate = &r.EngagementRate.Float64
	}
	if r.QualityScore.Valid {
		a.QualityScore = &r.QualityScore.Float64
	}
	return a
}

// UpsertSocialAccount stores the latest snapshot for (creator, platform).
func (a *CreatorAdapter) UpsertSocialAccount(ctx context.Context, account *domain.CreatorSocialAccount) error {
	query := `
		INSERT INTO creator_social_accounts (` + socialAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (creator_id, platform) DO UPDATE SET
			handle = EXCLUDED.handle,
			followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			posts = EXCLUDED.posts,
			engagement_rate = EXCLUDED.engagement_rate,
			quality_score = EXCLUDED.quality_score,
			fetched_at = EXCLUDED.fetched_at
	`
	_, err := a.db.ExecContext(ctx, query,
		account.CreatorID,
		string(account.Platform),
		account.Handle,
		account.Followers,
		nullInt64(account.Following),
		nullInt64(account.Posts),
		nullFloat64(account.EngagementRate),
		nullFloat64(account.QualityScore),
		account.FetchedAt,
	)
	return dbError("social account", "upsert social account", err)
}

// ListSocialAccounts returns the stored snapshots of one creator.
func (a *CreatorAdapter) ListSocialAccounts(ctx context.Context, creatorID uuid.UUID) ([]*domain.CreatorSocialAccount, error) {
	var rows []socialAccountRow
	query := `SELECT ` + socialAccountColumns + ` FROM creator_social_accounts WHERE creator_id = $1 ORDER BY platform`
	if err := a.db.SelectContext(ctx, &rows, query, creatorID); err != nil {
		return nil, dbError("social account", "list social accounts", err)
	}

	accounts := make([]*domain.CreatorSocialAccount, len(rows))
	for i := range rows {
		accounts[i] = rows[i].toDomain()
	}
	return accounts, nil
}

// ListAllSocialAccounts returns every stored snapshot grouped by creator.
func (a *CreatorAdapter) ListAllSocialAccounts(ctx context.Context) (map[uuid.UUID][]*domain.CreatorSocialAccount, error) {
	rows, err := a.db.QueryxContext(ctx, `SELECT `+socialAccountColumns+` FROM creator_social_accounts ORDER BY creator_id, platform`)
	if err != nil {
		return nil, dbError("social account", "list all social accounts", err)
	}
	defer rows.Close()

	byCreator := make(map[uuid.UUID][]*domain.CreatorSocialAccount)
	for rows.Next() {
		var row socialAccountRow
		if err := rows.StructScan(&row); err != nil {
			return nil, dbError("social account", "scan social account", err)
		}
		byCreator[row.CreatorID] = append(byCreator[row.CreatorID], row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("social account", "list all social accounts", err)
	}
	return byCreator, nil
}

type creatorTierRow struct {
	CreatorID         uuid.UUID     `db:"creator_id"`
	Tier              sql.NullInt64 `db:"tier"`
	TierName          string        `db:"tier_name"`
	TotalFollowers    int64         `db:"total_followers"`
	EngagementRate    float64       `db:"engagement_rate"`
	QualityScore      float64       `db:"quality_score"`
	MeetsRequirements bool          `db:"meets_requirements"`
	Reason            string        `db:"reason"`
	CommissionRate    float64       `db:"commission_rate"`
	Trace             []byte        `db:"trace"`
	CalculatedAt      time.Time     `db:"calculated_at"`
}

const creatorTierColumns = `creator_id, tier, tier_name, total_followers, engagement_rate, quality_score,
	meets_requirements, reason, commission_rate, trace, calculated_at`

func (r *creatorTierRow) toDomain() *domain.CreatorTier {
	t := &domain.CreatorTier{
		CreatorID: r.CreatorID,
		Result: domain.TierResult{
			TierName:          r.TierName,
			TotalFollowers:    r.TotalFollowers,
			EngagementRate:    r.EngagementRate,
			QualityScore:      r.QualityScore,
			MeetsRequirements: r.MeetsRequirements,
			Reason:            r.Reason,
			CommissionRate:    r.CommissionRate,
		},
		CalculatedAt: r.CalculatedAt,
	}
	if r.Tier.Valid {
		tier := domain.Tier(r.Tier.Int64)
		t.Result.Tier = &tier
	}
	if len(r.Trace) > 0 {
		// A corrupt trace only loses the explanation; the tier itself stands.
		if err := json.Unmarshal(r.Trace, &t.Result.Trace); err != nil {
			logger.WithField("creator_id", r.CreatorID).WithError(err).Warn("unreadable tier trace")
		}
	}
	return t
}

// GetTier returns the stored tier, or nil when the creator was never evaluated.
func (a *CreatorAdapter) GetTier(ctx context.Context, creatorID uuid.UUID) (*domain.CreatorTier, error) {
	var row creatorTierRow
	err := a.db.GetContext(ctx, &row, `SELECT `+creatorTierColumns+` FROM creator_tiers WHERE creator_id = $1`, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("creator tier", "get creator tier", err)
	}
	return row.toDomain(), nil
}

// SaveTier replaces the creator's stored tier.
func (a *CreatorAdapter) SaveTier(ctx context.Context, tier *domain.CreatorTier) error {
	trace, err := json.Marshal(tier.Result.Trace)
	if err != nil {
		return err
	}

	var tierValue sql.NullInt64
	if tier.Result.Tier != nil {
		tierValue = sql.NullInt64{Int64: int64(*tier.Result.Tier), Valid: true}
	}

	query := `
		INSERT INTO creator_tiers (` + creatorTierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (creator_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			tier_name = EXCLUDED.tier_name,
			total_followers = EXCLUDED.total_followers,
			engagement_rate = EXCLUDED.engagement_rate,
			quality_score = EXCLUDED.quality_score,
			meets_requirements = EXCLUDED.meets_requirements,
			reason = EXCLUDED.reason,
			commission_rate = EXCLUDED.commission_rate,
			trace = EXCLUDED.trace,
			calculated_at = EXCLUDED.calculated_at
	`
	_, err = a.db.ExecContext(ctx, query,
		tier.CreatorID,
		tierValue,
		tier.Result.TierName,
		tier.Result.TotalFollowers,
		tier.Result.EngagementRate,
		tier.Result.QualityScore,
		tier.Result.MeetsRequirements,
		tier.Result.Reason,
		tier.Result.CommissionRate,
		string(trace),
		tier.CalculatedAt,
	)
	return dbError("creator tier", "save creator tier", err)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Ensure interface compliance
var _ domain.CreatorRepository = (*CreatorAdapter)(nil)

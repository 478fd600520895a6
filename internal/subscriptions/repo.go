package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) ListTiers(ctx context.Context) (_ []Tier, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.subscriptions.listTiers")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, price_cents, max_clients, created_at
			FROM subscription_tiers
			ORDER BY price_cents ASC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2tiers(rows)
}

func (r *Repo) GetTier(ctx context.Context, id int) (_ *Tier, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.subscriptions.getTier")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, price_cents, max_clients, created_at
			FROM subscription_tiers
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	tiers, err := r.rows2tiers(rows)
	if err != nil {
		return nil, err
	}

	if len(tiers) != 1 {
		return nil, ErrTierNotFound
	}

	return &tiers[0], nil
}

// TrainerTier returns the tier currently assigned to the trainer, or
// ErrNoTierAssigned when the trainer never picked one.
func (r *Repo) TrainerTier(ctx context.Context, trainerID int) (_ *Tier, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.subscriptions.trainerTier")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT st.id, st.name, st.price_cents, st.max_clients, st.created_at
			FROM subscription_tiers st
			JOIN trainers t ON t.tier_id = st.id
			WHERE t.user_id = $1;`,
		trainerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	tiers, err := r.rows2tiers(rows)
	if err != nil {
		return nil, err
	}

	if len(tiers) != 1 {
		return nil, ErrNoTierAssigned
	}

	return &tiers[0], nil
}

func (r *Repo) AssignTier(ctx context.Context, trainerID, tierID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.subscriptions.assignTier")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))
	span.SetAttributes(attribute.Int("tier.id", tierID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE trainers SET tier_id = $1 WHERE user_id = $2;`,
		tierID, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("trainer profile not found")
	}
	return nil
}

func (r *Repo) rows2tiers(rows pgx.Rows) ([]Tier, error) {
	var tiers []Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.PriceCents, &t.MaxClients, &t.CreatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}

	if tiers == nil {
		tiers = make([]Tier, 0)
	}

	return tiers, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type ListParams struct {
	ClientID int
	Page     int
	Size     int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, m Measurement) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("client.id", m.ClientID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO client_progress
			(client_id, body_weight, chest_size, waist_size, biceps_size, thigh_size, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;`,
		m.ClientID, m.BodyWeight, m.ChestSize, m.WaistSize, m.BicepsSize, m.ThighSize, m.Notes, m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &m, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, client_id, body_weight, chest_size, waist_size, biceps_size, thigh_size, notes, created_at
			FROM client_progress WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	measurements, err := r.rows2measurements(rows)
	if err != nil {
		return nil, err
	}

	if len(measurements) != 1 {
		return nil, ErrMeasurementNotFound
	}

	return &measurements[0], nil
}

// List returns one page of the client's measurements, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("client.id", params.ClientID))
	span.SetAttributes(attribute.Int("page", params.Page))

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	rows, err := r.db.Query(
		ctx,
		`SELECT id, client_id, body_weight, chest_size, waist_size, biceps_size, thigh_size, notes, created_at
			FROM client_progress
			WHERE client_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3;`,
		params.ClientID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2measurements(rows)
}

// ListAll returns every measurement of the client, oldest first,
// the ordering the derived-metric calculations rely on.
func (r *Repo) ListAll(ctx context.Context, clientID int) (_ []Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("client.id", clientID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, client_id, body_weight, chest_size, waist_size, biceps_size, thigh_size, notes, created_at
			FROM client_progress
			WHERE client_id = $1
			ORDER BY created_at ASC;`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2measurements(rows)
}

func (r *Repo) Count(ctx context.Context, clientID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT COUNT(*) FROM client_progress WHERE client_id = $1;`,
		clientID,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get measurements count")
}

func (r *Repo) rows2measurements(rows pgx.Rows) ([]Measurement, error) {
	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(
			&m.ID, &m.ClientID,
			&m.BodyWeight, &m.ChestSize, &m.WaistSize, &m.BicepsSize, &m.ThighSize,
			&m.Notes, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}

	if measurements == nil {
		measurements = make([]Measurement, 0)
	}

	return measurements, nil
}

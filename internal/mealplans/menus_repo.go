package mealplans

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type MenusRepo struct {
	db *pgxpool.Pool
}

func NewMenusRepo(db *pgxpool.Pool) *MenusRepo {
	return &MenusRepo{
		db: db,
	}
}

func (r *MenusRepo) Add(ctx context.Context, menu Menu) (_ *Menu, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menus.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO menus (trainer_id, name, calories, protein_grams, carbs_grams, fat_grams, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;`,
		menu.TrainerID, menu.Name, menu.Calories, menu.ProteinGrams, menu.CarbsGrams, menu.FatGrams, menu.CreatedAt,
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

	if err := rows.Scan(&menu.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &menu, nil
}

func (r *MenusRepo) Get(ctx context.Context, id int) (_ *Menu, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menus.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, name, calories, protein_grams, carbs_grams, fat_grams, created_at
			FROM menus WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	menus, err := r.rows2menus(rows)
	if err != nil {
		return nil, err
	}

	if len(menus) != 1 {
		return nil, ErrMenuNotFound
	}

	return &menus[0], nil
}

func (r *MenusRepo) List(ctx context.Context, trainerID int) (_ []Menu, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menus.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", trainerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, name, calories, protein_grams, carbs_grams, fat_grams, created_at
			FROM menus
			WHERE trainer_id = $1
			ORDER BY created_at DESC;`,
		trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2menus(rows)
}

func (r *MenusRepo) Update(ctx context.Context, menu *Menu) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menus.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE menus
			SET name = $1, calories = $2, protein_grams = $3, carbs_grams = $4, fat_grams = $5
			WHERE id = $6 AND trainer_id = $7;`,
		menu.Name, menu.Calories, menu.ProteinGrams, menu.CarbsGrams, menu.FatGrams, menu.ID, menu.TrainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMenuNotFound
	}
	return nil
}

// Delete fails with a FK violation while the menu is slotted into a
// plan; the handler maps that to a conflict.
func (r *MenusRepo) Delete(ctx context.Context, trainerID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menus.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM menus WHERE id = $1 AND trainer_id = $2;`,
		id, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMenuNotFound
	}
	return nil
}

func (r *MenusRepo) rows2menus(rows pgx.Rows) ([]Menu, error) {
	var menus []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(
			&m.ID, &m.TrainerID, &m.Name, &m.Calories,
			&m.ProteinGrams, &m.CarbsGrams, &m.FatGrams, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}

	if menus == nil {
		menus = make([]Menu, 0)
	}

	return menus, nil
}

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

type PlansRepo struct {
	db *pgxpool.Pool
}

func NewPlansRepo(db *pgxpool.Pool) *PlansRepo {
	return &PlansRepo{
		db: db,
	}
}

func (r *PlansRepo) Add(ctx context.Context, plan MenuPlan) (_ *MenuPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("trainer.id", plan.TrainerID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO menu_plans (trainer_id, client_id, name, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		plan.TrainerID, plan.ClientID, plan.Name, plan.Description, plan.CreatedAt,
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

	if err := rows.Scan(&plan.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &plan, nil
}

func (r *PlansRepo) Get(ctx context.Context, id int) (_ *MenuPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, trainer_id, client_id, name, description, created_at
			FROM menu_plans WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans, err := r.rows2plans(rows)
	if err != nil {
		return nil, err
	}

	if len(plans) != 1 {
		return nil, ErrPlanNotFound
	}

	return &plans[0], nil
}

func (r *PlansRepo) ListForTrainer(ctx context.Context, trainerID int) (_ []MenuPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.listForTrainer")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.list(ctx, `trainer_id = $1`, trainerID)
}

func (r *PlansRepo) ListForClient(ctx context.Context, clientID int) (_ []MenuPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.listForClient")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.list(ctx, `client_id = $1`, clientID)
}

func (r *PlansRepo) list(ctx context.Context, where string, arg any) ([]MenuPlan, error) {
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`
			SELECT id, trainer_id, client_id, name, description, created_at
			FROM menu_plans
			WHERE %s
			ORDER BY created_at DESC;`, where),
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2plans(rows)
}

func (r *PlansRepo) Delete(ctx context.Context, trainerID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM menu_plan_items WHERE plan_id = $1;`,
		id,
	); err != nil {
		return fmt.Errorf("delete menu plan items: %w", err)
	}

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM menu_plans WHERE id = $1 AND trainer_id = $2;`,
		id, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = ErrPlanNotFound
		return err
	}

	return tx.Commit(ctx)
}

// Assign sets the plan's client; clientID nil unassigns it.
func (r *PlansRepo) Assign(ctx context.Context, trainerID, planID int, clientID *int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.assign")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("plan.id", planID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE menu_plans SET client_id = $1 WHERE id = $2 AND trainer_id = $3;`,
		clientID, planID, trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlansRepo) AddItem(ctx context.Context, item MenuPlanItem) (_ *MenuPlanItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.addItem")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("plan.id", item.PlanID))
	span.SetAttributes(attribute.Int("menu.id", item.MenuID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO menu_plan_items (plan_id, menu_id, day, slot)
			VALUES ($1, $2, $3, $4)
		RETURNING id;`,
		item.PlanID, item.MenuID, item.Day, item.Slot,
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

	if err := rows.Scan(&item.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &item, nil
}

func (r *PlansRepo) RemoveItem(ctx context.Context, planID, itemID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.removeItem")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM menu_plan_items WHERE id = $1 AND plan_id = $2;`,
		itemID, planID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListItems returns the plan's items joined with menu macros,
// ordered by day then slot.
func (r *PlansRepo) ListItems(ctx context.Context, planID int) (_ []MenuPlanItemDetail, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.menuPlans.listItems")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("plan.id", planID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT i.id, i.plan_id, i.menu_id, i.day, i.slot,
				m.name, m.calories, m.protein_grams, m.carbs_grams, m.fat_grams
			FROM menu_plan_items i
			JOIN menus m ON m.id = i.menu_id
			WHERE i.plan_id = $1
			ORDER BY i.day ASC, i.slot ASC;`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var items []MenuPlanItemDetail
	for rows.Next() {
		var d MenuPlanItemDetail
		if err := rows.Scan(
			&d.ID, &d.PlanID, &d.MenuID, &d.Day, &d.Slot,
			&d.MenuName, &d.Calories, &d.ProteinGrams, &d.CarbsGrams, &d.FatGrams,
		); err != nil {
			return nil, err
		}
		items = append(items, d)
	}

	if items == nil {
		items = make([]MenuPlanItemDetail, 0)
	}

	return items, nil
}

func (r *PlansRepo) rows2plans(rows pgx.Rows) ([]MenuPlan, error) {
	var plans []MenuPlan
	for rows.Next() {
		var p MenuPlan
		if err := rows.Scan(&p.ID, &p.TrainerID, &p.ClientID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}

	if plans == nil {
		plans = make([]MenuPlan, 0)
	}

	return plans, nil
}

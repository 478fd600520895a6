package mealplans

import (
	"context"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// NutritionTotals is the macro rollup of a set of plan items.
type NutritionTotals struct {
	Calories     int     `json:"calories"`
	ProteinGrams float64 `json:"proteinGrams"`
	CarbsGrams   float64 `json:"carbsGrams"`
	FatGrams     float64 `json:"fatGrams"`
	Meals        int     `json:"meals"`
}

// NutritionReport carries the whole-plan totals plus the per-day
// breakdown (day 1..7). Recomputed on every read, never persisted.
type NutritionReport struct {
	PlanID int                     `json:"planId"`
	Totals NutritionTotals         `json:"totals"`
	PerDay map[int]NutritionTotals `json:"perDay"`
}

type Analyzer struct {
	repo plansRepo
}

func NewAnalyzer(repo plansRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

func (a *Analyzer) PlanNutrition(ctx context.Context, planID int) (_ *NutritionReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.mealplans.nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("plan.id", planID))

	items, err := a.repo.ListItems(ctx, planID)
	if err != nil {
		return nil, err
	}

	report := &NutritionReport{
		PlanID: planID,
		PerDay: make(map[int]NutritionTotals),
	}

	for _, item := range items {
		report.Totals = addMeal(report.Totals, item)
		report.PerDay[item.Day] = addMeal(report.PerDay[item.Day], item)
	}

	return report, nil
}

func addMeal(totals NutritionTotals, item MenuPlanItemDetail) NutritionTotals {
	totals.Calories += item.Calories
	totals.ProteinGrams += item.ProteinGrams
	totals.CarbsGrams += item.CarbsGrams
	totals.FatGrams += item.FatGrams
	totals.Meals++
	return totals
}

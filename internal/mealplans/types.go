package mealplans

import (
	"errors"
	"time"
)

var (
	ErrMenuNotFound = errors.New("menu not found")
	ErrPlanNotFound = errors.New("menu plan not found")
	ErrItemNotFound = errors.New("menu plan item not found")
)

// Menu is one trainer-authored meal with its macro profile.
type Menu struct {
	ID           int       `json:"id"`
	TrainerID    int       `json:"trainerId"`
	Name         string    `json:"name"`
	Calories     int       `json:"calories"`
	ProteinGrams float64   `json:"proteinGrams"`
	CarbsGrams   float64   `json:"carbsGrams"`
	FatGrams     float64   `json:"fatGrams"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MenuPlan is a weekly eating plan, optionally assigned to a client.
type MenuPlan struct {
	ID          int       `json:"id"`
	TrainerID   int       `json:"trainerId"`
	ClientID    *int      `json:"clientId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MenuPlanItem slots a menu into a plan: day 1..7, slot like
// "breakfast" or "post-workout".
type MenuPlanItem struct {
	ID     int    `json:"id"`
	PlanID int    `json:"planId"`
	MenuID int    `json:"menuId"`
	Day    int    `json:"day"`
	Slot   string `json:"slot"`
}

// MenuPlanItemDetail joins an item with its menu's macros.
type MenuPlanItemDetail struct {
	MenuPlanItem
	MenuName     string  `json:"menuName"`
	Calories     int     `json:"calories"`
	ProteinGrams float64 `json:"proteinGrams"`
	CarbsGrams   float64 `json:"carbsGrams"`
	FatGrams     float64 `json:"fatGrams"`
}

package mealplans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/metrics"
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type plansRepo interface {
	Add(ctx context.Context, plan MenuPlan) (*MenuPlan, error)
	Get(ctx context.Context, id int) (*MenuPlan, error)
	ListForTrainer(ctx context.Context, trainerID int) ([]MenuPlan, error)
	ListForClient(ctx context.Context, clientID int) ([]MenuPlan, error)
	Delete(ctx context.Context, trainerID, id int) error
	Assign(ctx context.Context, trainerID, planID int, clientID *int) error
	AddItem(ctx context.Context, item MenuPlanItem) (*MenuPlanItem, error)
	RemoveItem(ctx context.Context, planID, itemID int) error
	ListItems(ctx context.Context, planID int) ([]MenuPlanItemDetail, error)
}

// clientsDirectory guards assignment the same way workouts do it:
// plans only go to the trainer's own clients.
type clientsDirectory interface {
	IsLinked(ctx context.Context, trainerID, clientID int) (bool, error)
}

type planRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type planItemRequest struct {
	MenuID int    `json:"menuId"`
	Day    int    `json:"day"`
	Slot   string `json:"slot"`
}

type PlansResponse struct {
	Plans []MenuPlan `json:"plans"`
	Total int        `json:"total"`
}

type PlanDetailsResponse struct {
	Plan      MenuPlan             `json:"plan"`
	Items     []MenuPlanItemDetail `json:"items"`
	Nutrition *NutritionReport     `json:"nutrition"`
}

type PlansHandler struct {
	repo     plansRepo
	clients  clientsDirectory
	analyzer *Analyzer
	metrics  *metrics.Manager
}

func NewPlansHandler(
	repo plansRepo,
	clients clientsDirectory,
	metrics *metrics.Manager,
) *PlansHandler {
	return &PlansHandler{
		repo:     repo,
		clients:  clients,
		analyzer: NewAnalyzer(repo),
		metrics:  metrics,
	}
}

func (handler *PlansHandler) SetupRoutes(mainRouter *mux.Router) {
	plansRouter := mainRouter.PathPrefix("/mealplans").Subrouter()
	plansRouter.
		HandleFunc("", handler.handleAdd).
		Methods("POST", "OPTIONS").Name("new-meal-plan")
	plansRouter.
		HandleFunc("", handler.handleList).
		Methods("GET").Name("meal-plans")
	plansRouter.
		HandleFunc("/{id}", handler.handleDetails).
		Methods("GET").Name("meal-plan-details")
	plansRouter.
		HandleFunc("/{id}", handler.handleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-meal-plan")
	plansRouter.
		HandleFunc("/{id}/items", handler.handleAddItem).
		Methods("POST", "OPTIONS").Name("new-meal-plan-item")
	plansRouter.
		HandleFunc("/{id}/items/{itemId}", handler.handleRemoveItem).
		Methods("DELETE", "OPTIONS").Name("remove-meal-plan-item")
	plansRouter.
		HandleFunc("/{id}/assign/{clientId}", handler.handleAssign).
		Methods("POST", "OPTIONS").Name("assign-meal-plan")
	plansRouter.
		HandleFunc("/{id}/assign", handler.handleUnassign).
		Methods("DELETE", "OPTIONS").Name("unassign-meal-plan")
}

func (handler *PlansHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.add")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	var planReq planRequest
	if err := json.NewDecoder(r.Body).Decode(&planReq); err != nil {
		log.Tracef("new meal plan, unmarshal json params: %s", err)
		http.Error(w, "add meal plan failed", http.StatusBadRequest)
		return
	}

	if planReq.Name == "" {
		http.Error(w, "error, plan name empty", http.StatusBadRequest)
		return
	}

	addedPlan, err := handler.repo.Add(ctx, MenuPlan{
		TrainerID:   session.UserID,
		Name:        planReq.Name,
		Description: planReq.Description,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new meal plan [%s]: %s", planReq.Name, err)
		http.Error(w, "error, failed to add new meal plan", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterMenuPlansCreated.Inc()

	planJson, err := json.Marshal(addedPlan)
	if err != nil {
		log.Errorf("failed to marshal new meal plan: %s", err)
		http.Error(w, "error, failed to add new meal plan", http.StatusInternalServerError)
		return
	}

	log.Debugf("new meal plan added: %d [%s]", addedPlan.ID, addedPlan.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, planJson, http.StatusCreated)
}

func (handler *PlansHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.list")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var plans []MenuPlan
	var err error
	if session.Role == auth.RoleTrainer {
		plans, err = handler.repo.ListForTrainer(ctx, session.UserID)
	} else {
		plans, err = handler.repo.ListForClient(ctx, session.UserID)
	}
	if err != nil {
		log.Errorf("list meal plans for user %d: %s", session.UserID, err)
		http.Error(w, "failed to get meal plans", http.StatusInternalServerError)
		return
	}

	plansJson, err := json.Marshal(PlansResponse{
		Plans: plans,
		Total: len(plans),
	})
	if err != nil {
		log.Errorf("marshal meal plans error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, plansJson)
}

func (handler *PlansHandler) handleDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.details")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan, err := handler.getAccessiblePlan(ctx, session, id)
	if err != nil {
		writePlanAccessError(w, id, err)
		return
	}

	items, err := handler.repo.ListItems(ctx, id)
	if err != nil {
		log.Errorf("list items for meal plan %d: %s", id, err)
		http.Error(w, "failed to get meal plan", http.StatusInternalServerError)
		return
	}

	nutrition, err := handler.analyzer.PlanNutrition(ctx, id)
	if err != nil {
		log.Errorf("meal plan %d nutrition: %s", id, err)
		http.Error(w, "failed to get meal plan", http.StatusInternalServerError)
		return
	}

	detailsJson, err := json.Marshal(PlanDetailsResponse{
		Plan:      *plan,
		Items:     items,
		Nutrition: nutrition,
	})
	if err != nil {
		log.Errorf("marshal meal plan details error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, detailsJson)
}

func (handler *PlansHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.delete")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	id, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, session.UserID, id); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "error, meal plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete meal plan %d: %s", id, err)
		http.Error(w, "error, meal plan not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func (handler *PlansHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.addItem")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	planID, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := handler.getOwnedPlan(ctx, session.UserID, planID); err != nil {
		writePlanAccessError(w, planID, err)
		return
	}

	var itemReq planItemRequest
	if err := json.NewDecoder(r.Body).Decode(&itemReq); err != nil {
		log.Tracef("new meal plan item, unmarshal json params: %s", err)
		http.Error(w, "add meal plan item failed", http.StatusBadRequest)
		return
	}

	if itemReq.MenuID <= 0 {
		http.Error(w, "error, menu id must be positive", http.StatusBadRequest)
		return
	}
	if itemReq.Day < 1 || itemReq.Day > 7 {
		http.Error(w, "error, day must be within 1..7", http.StatusBadRequest)
		return
	}
	if itemReq.Slot == "" {
		http.Error(w, "error, slot empty", http.StatusBadRequest)
		return
	}

	addedItem, err := handler.repo.AddItem(ctx, MenuPlanItem{
		PlanID: planID,
		MenuID: itemReq.MenuID,
		Day:    itemReq.Day,
		Slot:   itemReq.Slot,
	})
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "error, menu not found", http.StatusNotFound)
			return
		}
		log.Errorf("add menu %d to meal plan %d: %s", itemReq.MenuID, planID, err)
		http.Error(w, "add meal plan item failed", http.StatusInternalServerError)
		return
	}

	itemJson, err := json.Marshal(addedItem)
	if err != nil {
		log.Errorf("marshal meal plan item error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, itemJson, http.StatusCreated)
}

func (handler *PlansHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.removeItem")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	planID, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemID, err := strconv.Atoi(mux.Vars(r)["itemId"])
	if err != nil {
		http.Error(w, "error, item id NaN", http.StatusBadRequest)
		return
	}

	if _, err := handler.getOwnedPlan(ctx, session.UserID, planID); err != nil {
		writePlanAccessError(w, planID, err)
		return
	}

	if err := handler.repo.RemoveItem(ctx, planID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			http.Error(w, "error, meal plan item not found", http.StatusNotFound)
			return
		}
		log.Errorf("remove item %d from meal plan %d: %s", itemID, planID, err)
		http.Error(w, "remove meal plan item failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("removed:%d", itemID))
}

func (handler *PlansHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.assign")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	planID, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	clientID, err := strconv.Atoi(mux.Vars(r)["clientId"])
	if err != nil {
		http.Error(w, "error, client id NaN", http.StatusBadRequest)
		return
	}

	linked, err := handler.clients.IsLinked(ctx, session.UserID, clientID)
	if err != nil {
		log.Errorf("assign meal plan, link check trainer %d client %d: %s", session.UserID, clientID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !linked {
		http.Error(w, "error, client not linked to trainer", http.StatusForbidden)
		return
	}

	if err := handler.repo.Assign(ctx, session.UserID, planID, &clientID); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "error, meal plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("assign meal plan %d to client %d: %s", planID, clientID, err)
		http.Error(w, "assign meal plan failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("meal plan %d assigned to client %d", planID, clientID)
	pkg.WriteTextResponseOK(w, fmt.Sprintf("assigned:%d", clientID))
}

func (handler *PlansHandler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "mealPlansHandler.unassign")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	planID, err := planIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Assign(ctx, session.UserID, planID, nil); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "error, meal plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("unassign meal plan %d: %s", planID, err)
		http.Error(w, "unassign meal plan failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("unassigned:%d", planID))
}

func (handler *PlansHandler) getOwnedPlan(ctx context.Context, trainerID, planID int) (*MenuPlan, error) {
	plan, err := handler.repo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.TrainerID != trainerID {
		return nil, errPlanForbidden
	}
	return plan, nil
}

func (handler *PlansHandler) getAccessiblePlan(ctx context.Context, session *auth.Session, planID int) (*MenuPlan, error) {
	plan, err := handler.repo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if session.Role == auth.RoleTrainer && plan.TrainerID == session.UserID {
		return plan, nil
	}
	if session.Role == auth.RoleClient && plan.ClientID != nil && *plan.ClientID == session.UserID {
		return plan, nil
	}
	return nil, errPlanForbidden
}

var errPlanForbidden = errors.New("meal plan access forbidden")

func writePlanAccessError(w http.ResponseWriter, planID int, err error) {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		http.Error(w, "error, meal plan not found", http.StatusNotFound)
	case errors.Is(err, errPlanForbidden):
		http.Error(w, "no can do", http.StatusForbidden)
	default:
		log.Errorf("get meal plan %d: %s", planID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func planIDParam(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}

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
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type menusRepo interface {
	Add(ctx context.Context, menu Menu) (*Menu, error)
	Get(ctx context.Context, id int) (*Menu, error)
	List(ctx context.Context, trainerID int) ([]Menu, error)
	Update(ctx context.Context, menu *Menu) error
	Delete(ctx context.Context, trainerID, id int) error
}

type menuRequest struct {
	Name         string  `json:"name"`
	Calories     int     `json:"calories"`
	ProteinGrams float64 `json:"proteinGrams"`
	CarbsGrams   float64 `json:"carbsGrams"`
	FatGrams     float64 `json:"fatGrams"`
}

type MenusResponse struct {
	Menus []Menu `json:"menus"`
	Total int    `json:"total"`
}

type MenusHandler struct {
	repo menusRepo
}

func NewMenusHandler(repo menusRepo) *MenusHandler {
	return &MenusHandler{
		repo: repo,
	}
}

func (handler *MenusHandler) SetupRoutes(mainRouter *mux.Router) {
	menusRouter := mainRouter.PathPrefix("/menus").Subrouter()
	menusRouter.
		HandleFunc("", handler.handleAdd).
		Methods("POST", "OPTIONS").Name("new-menu")
	menusRouter.
		HandleFunc("", handler.handleList).
		Methods("GET").Name("menus")
	menusRouter.
		HandleFunc("/{id}", handler.handleUpdate).
		Methods("PUT", "OPTIONS").Name("update-menu")
	menusRouter.
		HandleFunc("/{id}", handler.handleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-menu")
}

func (handler *MenusHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "menusHandler.add")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	menuReq, err := decodeMenuRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedMenu, err := handler.repo.Add(ctx, Menu{
		TrainerID:    session.UserID,
		Name:         menuReq.Name,
		Calories:     menuReq.Calories,
		ProteinGrams: menuReq.ProteinGrams,
		CarbsGrams:   menuReq.CarbsGrams,
		FatGrams:     menuReq.FatGrams,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new menu [%s]: %s", menuReq.Name, err)
		http.Error(w, "error, failed to add new menu", http.StatusInternalServerError)
		return
	}

	menuJson, err := json.Marshal(addedMenu)
	if err != nil {
		log.Errorf("failed to marshal new menu: %s", err)
		http.Error(w, "error, failed to add new menu", http.StatusInternalServerError)
		return
	}

	log.Debugf("new menu added: %d [%s]", addedMenu.ID, addedMenu.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, menuJson, http.StatusCreated)
}

func (handler *MenusHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "menusHandler.list")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	menus, err := handler.repo.List(ctx, session.UserID)
	if err != nil {
		log.Errorf("list menus for trainer %d: %s", session.UserID, err)
		http.Error(w, "failed to get menus", http.StatusInternalServerError)
		return
	}

	menusJson, err := json.Marshal(MenusResponse{
		Menus: menus,
		Total: len(menus),
	})
	if err != nil {
		log.Errorf("marshal menus error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, menusJson)
}

func (handler *MenusHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "menusHandler.update")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	id, err := menuIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	menuReq, err := decodeMenuRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, &Menu{
		ID:           id,
		TrainerID:    session.UserID,
		Name:         menuReq.Name,
		Calories:     menuReq.Calories,
		ProteinGrams: menuReq.ProteinGrams,
		CarbsGrams:   menuReq.CarbsGrams,
		FatGrams:     menuReq.FatGrams,
	}); err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			http.Error(w, "error, menu not found", http.StatusNotFound)
			return
		}
		log.Errorf("update menu %d: %s", id, err)
		http.Error(w, "update menu failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", id))
}

func (handler *MenusHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "menusHandler.delete")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	id, err := menuIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, session.UserID, id); err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			http.Error(w, "error, menu not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			// still slotted into a plan
			http.Error(w, "error, menu used by a plan", http.StatusConflict)
			return
		}
		log.Errorf("delete menu %d: %s", id, err)
		http.Error(w, "error, menu not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func decodeMenuRequest(r *http.Request) (*menuRequest, error) {
	var menuReq menuRequest
	if err := json.NewDecoder(r.Body).Decode(&menuReq); err != nil {
		log.Tracef("menu request, unmarshal json params: %s", err)
		return nil, errors.New("invalid menu payload")
	}
	if menuReq.Name == "" {
		return nil, errors.New("error, menu name empty")
	}
	if menuReq.Calories < 0 || menuReq.ProteinGrams < 0 || menuReq.CarbsGrams < 0 || menuReq.FatGrams < 0 {
		return nil, errors.New("error, negative nutrition values")
	}
	return &menuReq, nil
}

func menuIDParam(r *http.Request) (int, error) {
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

package subscriptions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TiersResponse struct {
	Tiers []Tier `json:"tiers"`
	Total int    `json:"total"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	subsRouter := mainRouter.PathPrefix("/subscriptions").Subrouter()
	subsRouter.
		HandleFunc("/tiers", handler.handleListTiers).
		Methods("GET").Name("subscription-tiers")
	subsRouter.
		HandleFunc("/tiers/mine", handler.handleMyTier).
		Methods("GET").Name("my-subscription-tier")
	subsRouter.
		HandleFunc("/tiers/{id}/assign", handler.handleAssignTier).
		Methods("POST", "OPTIONS").Name("assign-subscription-tier")
}

// handleListTiers is on the public paths allow-list so the pricing
// page can render without a login.
func (handler *Handler) handleListTiers(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "subscriptionsHandler.listTiers")
	defer span.End()

	tiers, err := handler.service.ListTiers(ctx)
	if err != nil {
		log.Errorf("list tiers error: %s", err)
		http.Error(w, "failed to get tiers", http.StatusInternalServerError)
		return
	}

	tiersJson, err := json.Marshal(TiersResponse{
		Tiers: tiers,
		Total: len(tiers),
	})
	if err != nil {
		log.Errorf("marshal tiers error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, tiersJson)
}

func (handler *Handler) handleMyTier(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "subscriptionsHandler.myTier")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	tier, err := handler.service.TrainerTier(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNoTierAssigned) {
			http.Error(w, "error, no tier assigned", http.StatusNotFound)
			return
		}
		log.Errorf("get tier for trainer %d: %s", session.UserID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	tierJson, err := json.Marshal(tier)
	if err != nil {
		log.Errorf("marshal tier error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, tierJson)
}

func (handler *Handler) handleAssignTier(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "subscriptionsHandler.assignTier")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	idStr := mux.Vars(r)["id"]
	tierID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.service.AssignTier(ctx, session.UserID, tierID); err != nil {
		if errors.Is(err, ErrTierNotFound) {
			http.Error(w, "error, tier not found", http.StatusNotFound)
			return
		}
		log.Errorf("assign tier %d to trainer %d: %s", tierID, session.UserID, err)
		http.Error(w, "assign tier failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("tier %d assigned to trainer %d", tierID, session.UserID)
	pkg.WriteTextResponseOK(w, fmt.Sprintf("assigned:%d", tierID))
}

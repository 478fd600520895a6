package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/metrics"
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

type ClientsResponse struct {
	Clients []User `json:"clients"`
	Total   int    `json:"total"`
}

type accountsRepo interface {
	AddUser(ctx context.Context, user User, passwordHash string) (*User, error)
	GetUser(ctx context.Context, id int) (*User, error)
	ListClients(ctx context.Context, trainerID int) ([]User, error)
	ClientsCount(ctx context.Context, trainerID int) (int, error)
	LinkClient(ctx context.Context, trainerID, clientID int) (*ClientLink, error)
	UnlinkClient(ctx context.Context, trainerID, clientID int) error
}

// tierCatalog resolves the trainer's subscription limits; implemented
// by the subscriptions service.
type tierCatalog interface {
	MaxClients(ctx context.Context, trainerID int) (int, error)
}

type Handler struct {
	repo    accountsRepo
	tiers   tierCatalog
	metrics *metrics.Manager
}

func NewHandler(
	repo accountsRepo,
	tiers tierCatalog,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:    repo,
		tiers:   tiers,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.
		HandleFunc("/a/register", handler.handleRegister).
		Methods("POST", "OPTIONS").Name("register")

	accountsRouter := mainRouter.PathPrefix("/accounts").Subrouter()
	accountsRouter.
		HandleFunc("/me", handler.handleGetMe).
		Methods("GET").Name("accounts-me")
	accountsRouter.
		HandleFunc("/clients", handler.handleListClients).
		Methods("GET").Name("accounts-clients")
	accountsRouter.
		HandleFunc("/clients/{id}", handler.handleLinkClient).
		Methods("POST", "OPTIONS").Name("link-client")
	accountsRouter.
		HandleFunc("/clients/{id}", handler.handleUnlinkClient).
		Methods("DELETE", "OPTIONS").Name("unlink-client")
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountsHandler.register")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var regReq registerRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&regReq); err != nil {
			log.Errorf("register, unmarshal json params: %s", err)
			http.Error(w, "register failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("register failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		regReq = registerRequest{
			Email:    r.Form.Get("email"),
			Password: r.Form.Get("password"),
			Role:     r.Form.Get("role"),
			Name:     r.Form.Get("name"),
		}
	}

	if _, err := mail.ParseAddress(regReq.Email); err != nil {
		http.Error(w, "error, email invalid", http.StatusBadRequest)
		return
	}
	if len(regReq.Password) < 8 {
		http.Error(w, "error, password too short", http.StatusBadRequest)
		return
	}
	if regReq.Role != auth.RoleTrainer && regReq.Role != auth.RoleClient {
		http.Error(w, "error, role invalid", http.StatusBadRequest)
		return
	}
	if regReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(regReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	addedUser, err := handler.repo.AddUser(ctx, User{
		Email:     regReq.Email,
		Role:      regReq.Role,
		Name:      regReq.Name,
		CreatedAt: time.Now(),
	}, passwordHash)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			http.Error(w, "error, email taken", http.StatusConflict)
			return
		}
		log.Errorf("register failed: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new %s registered: %d", addedUser.Role, addedUser.ID)

	userJson, err := json.Marshal(addedUser)
	if err != nil {
		log.Errorf("marshal registered user error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (handler *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountsHandler.me")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.repo.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get user %d: %s", session.UserID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal user error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

func (handler *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountsHandler.listClients")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	clients, err := handler.repo.ListClients(ctx, session.UserID)
	if err != nil {
		log.Errorf("list clients for trainer %d: %s", session.UserID, err)
		http.Error(w, "failed to get clients", http.StatusInternalServerError)
		return
	}

	clientsJson, err := json.Marshal(ClientsResponse{
		Clients: clients,
		Total:   len(clients),
	})
	if err != nil {
		log.Errorf("marshal clients error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, clientsJson)
}

func (handler *Handler) handleLinkClient(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountsHandler.linkClient")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	clientID, err := clientIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	client, err := handler.repo.GetUser(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "error, client not found", http.StatusNotFound)
			return
		}
		log.Errorf("link client, get user %d: %s", clientID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if client.Role != auth.RoleClient {
		http.Error(w, "error, user is not a client", http.StatusBadRequest)
		return
	}

	maxClients, err := handler.tiers.MaxClients(ctx, session.UserID)
	if err != nil {
		log.Errorf("link client, get max clients for trainer %d: %s", session.UserID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	clientsCount, err := handler.repo.ClientsCount(ctx, session.UserID)
	if err != nil {
		log.Errorf("link client, clients count for trainer %d: %s", session.UserID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if clientsCount >= maxClients {
		log.Tracef("trainer %d hit the clients limit [%d]", session.UserID, maxClients)
		http.Error(w, "error, subscription clients limit reached", http.StatusConflict)
		return
	}

	link, err := handler.repo.LinkClient(ctx, session.UserID, clientID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) || errors.Is(err, ErrAlreadyLinked) {
			http.Error(w, "error, client already linked", http.StatusConflict)
			return
		}
		log.Errorf("link client %d to trainer %d: %s", clientID, session.UserID, err)
		http.Error(w, "link client failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterClientsLinked.Inc()

	log.Tracef("client %d linked to trainer %d", clientID, session.UserID)
	pkg.WriteResponse(
		w,
		pkg.ContentType.Text,
		fmt.Sprintf("linked:%d", link.ID),
		http.StatusCreated,
	)
}

func (handler *Handler) handleUnlinkClient(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountsHandler.unlinkClient")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	clientID, err := clientIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.UnlinkClient(ctx, session.UserID, clientID); err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			http.Error(w, "error, client not linked", http.StatusNotFound)
			return
		}
		log.Errorf("unlink client %d from trainer %d: %s", clientID, session.UserID, err)
		http.Error(w, "unlink client failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("unlinked:%d", clientID))
}

func clientIDParam(r *http.Request) (int, error) {
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

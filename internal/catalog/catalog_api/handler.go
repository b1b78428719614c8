package catalog_api

import (
	"context"
	"fmt"
	"ms-events/internal/auth"
	"ms-events/internal/catalog"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	List(ctx context.Context, opts catalog.ListOptions) (*models.EventList, error)
	Get(ctx context.Context, id int) (*models.EventView, error)
}

// RegistrationState is what the detail view needs to render and flip its toggle.
type RegistrationState interface {
	IsRegistered(ctx context.Context, userID string, eventID int) (bool, error)
	Toggle(ctx context.Context, user models.Identity, eventID int) (bool, error)
}

type Handler struct {
	Catalog       Catalog
	Registrations RegistrationState
	Logger        *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)
	r.Post("/events/{id}/toggle", h.ToggleRegistration)
}

// ListEvents handles GET /events?q=&sort=&limit=&skip=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := utils.QueryInt(query, "limit", 0)
	if err != nil {
		utils.WriteServiceError(w, "Invalid query", err)
		return
	}
	skip, err := utils.QueryInt(query, "skip", 0)
	if err != nil {
		utils.WriteServiceError(w, "Invalid query", err)
		return
	}

	sortBy := strings.ToLower(strings.TrimSpace(query.Get("sort")))
	if !catalog.ValidSort(sortBy) {
		utils.WriteServiceError(w, "Invalid query",
			fmt.Errorf("%w: sort must be one of date, price, rating", models.ErrValidation))
		return
	}

	list, err := h.Catalog.List(r.Context(), catalog.ListOptions{
		Query: query.Get("q"),
		Sort:  sortBy,
		Limit: limit,
		Skip:  skip,
	})
	if err != nil {
		h.Logger.Error("CATALOG", fmt.Sprintf("Failed to list events: %v", err))
		utils.WriteServiceError(w, "Could not load events", err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Events retrieved", list)
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, "Invalid event id", err)
		return
	}

	view, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		if utils.StatusFor(err) != http.StatusNotFound {
			h.Logger.Error("CATALOG", fmt.Sprintf("Failed to get event %d: %v", id, err))
		}
		utils.WriteServiceError(w, "Could not load event", err)
		return
	}

	detail := models.EventDetail{EventView: *view}
	if user, ok := auth.UserFrom(r.Context()); ok {
		registered, err := h.Registrations.IsRegistered(r.Context(), user.UserID, id)
		if err != nil {
			h.Logger.Error("REGISTER", fmt.Sprintf("Failed to read registration state for user=%s event=%d: %v", user.UserID, id, err))
			utils.WriteServiceError(w, "Could not load event", err)
			return
		}
		detail.Registered = registered
	}

	utils.WriteSuccess(w, http.StatusOK, "Event retrieved", detail)
}

// ToggleRegistration handles POST /events/{id}/toggle
func (h *Handler) ToggleRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Authentication required", models.ErrUnauthorized)
		return
	}

	id, err := utils.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, "Invalid event id", err)
		return
	}

	registered, err := h.Registrations.Toggle(r.Context(), user, id)
	if err != nil {
		h.Logger.Error("REGISTER", fmt.Sprintf("Toggle failed for user=%s event=%d: %v", user.UserID, id, err))
		utils.WriteServiceError(w, "Could not update registration", err)
		return
	}

	message := "Registration removed"
	if registered {
		message = "Registered for event"
	}
	utils.WriteSuccess(w, http.StatusOK, message, map[string]bool{"registered": registered})
}

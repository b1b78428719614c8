package registration_api

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type RegistrationService interface {
	Register(ctx context.Context, user models.Identity, eventID int) (*models.Registration, error)
	Unregister(ctx context.Context, user models.Identity, eventID int) error
	Get(ctx context.Context, userID string, eventID int) (*models.Registration, error)
	List(ctx context.Context, userID string) ([]models.Registration, error)
	Profile(ctx context.Context, user models.Identity) (*models.Profile, error)
	Calendar(ctx context.Context, user models.Identity, duration time.Duration) (string, error)
}

type PassService interface {
	PassPNG(ctx context.Context, userID string, eventID, size int) ([]byte, error)
	Verify(ctx context.Context, token string) (*models.PassVerification, error)
}

type Handler struct {
	Registrations RegistrationService
	Passes        PassService
	EventDuration time.Duration
	Logger        *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Get("/", h.ListRegistrations)
		r.Post("/{id}", h.CreateRegistration)
		r.Get("/{id}", h.GetRegistration)
		r.Delete("/{id}", h.DeleteRegistration)
		r.Get("/{id}/pass.png", h.GetPass)
	})
	r.Post("/passes/verify", h.VerifyPass)

	r.Get("/profile", h.GetProfile)
	r.Get("/profile/calendar.ics", h.GetCalendar)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	regs, err := h.Registrations.List(r.Context(), user.UserID)
	if err != nil {
		h.Logger.Error("REGISTER", fmt.Sprintf("Failed to list registrations for %s: %v", user.UserID, err))
		utils.WriteServiceError(w, "Could not load registrations", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registrations retrieved", regs)
}

func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndEvent(w, r)
	if !ok {
		return
	}

	reg, err := h.Registrations.Register(r.Context(), user, id)
	if err != nil {
		h.logFailure("register", user.UserID, id, err)
		utils.WriteServiceError(w, "Could not register", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered for event", reg)
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndEvent(w, r)
	if !ok {
		return
	}

	reg, err := h.Registrations.Get(r.Context(), user.UserID, id)
	if err != nil {
		h.logFailure("get", user.UserID, id, err)
		utils.WriteServiceError(w, "Could not load registration", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registration retrieved", reg)
}

func (h *Handler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndEvent(w, r)
	if !ok {
		return
	}

	if err := h.Registrations.Unregister(r.Context(), user, id); err != nil {
		h.logFailure("unregister", user.UserID, id, err)
		utils.WriteServiceError(w, "Could not remove registration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPass handles GET /registrations/{id}/pass.png?size=
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndEvent(w, r)
	if !ok {
		return
	}

	size, err := utils.QueryInt(r.URL.Query(), "size", 0)
	if err != nil || size < 0 || size > 1024 {
		utils.WriteServiceError(w, "Invalid size", fmt.Errorf("%w: size must be between 0 and 1024", models.ErrValidation))
		return
	}

	png, err := h.Passes.PassPNG(r.Context(), user.UserID, id, size)
	if err != nil {
		h.logFailure("pass", user.UserID, id, err)
		utils.WriteServiceError(w, "Could not render pass", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// VerifyPass handles POST /passes/verify
// Expected POST request body: {"pass": "sealed_string"}
func (h *Handler) VerifyPass(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var body struct {
		Pass string `json:"pass"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Pass == "" {
		utils.WriteServiceError(w, "Invalid request body", fmt.Errorf("%w: pass is required", models.ErrValidation))
		return
	}

	result, err := h.Passes.Verify(r.Context(), body.Pass)
	if err != nil {
		h.Logger.LogSecurity("INVALID_PASS", err.Error())
		utils.WriteServiceError(w, "Pass rejected", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Pass checked", result)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.Registrations.Profile(r.Context(), user)
	if err != nil {
		h.Logger.Error("PROFILE", fmt.Sprintf("Failed to build profile for %s: %v", user.UserID, err))
		utils.WriteServiceError(w, "Could not load profile", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile retrieved", profile)
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ics, err := h.Registrations.Calendar(r.Context(), user, h.EventDuration)
	if err != nil {
		h.Logger.Error("PROFILE", fmt.Sprintf("Failed to build calendar for %s: %v", user.UserID, err))
		utils.WriteServiceError(w, "Could not build calendar", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

func (h *Handler) userAndEvent(w http.ResponseWriter, r *http.Request) (models.Identity, int, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return user, 0, false
	}
	id, err := utils.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, "Invalid event id", err)
		return user, 0, false
	}
	return user, id, true
}

func (h *Handler) logFailure(action, userID string, eventID int, err error) {
	status := utils.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("REGISTER", fmt.Sprintf("%s failed for user=%s event=%d: %v", action, userID, eventID, err))
		return
	}
	h.Logger.Debug("REGISTER", fmt.Sprintf("%s rejected for user=%s event=%d: %v", action, userID, eventID, err))
}

func requireUser(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Authentication required", models.ErrUnauthorized)
	}
	return user, ok
}

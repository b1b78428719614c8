package registration_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/registrations/registration_api"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) Register(ctx context.Context, user models.Identity, eventID int) (*models.Registration, error) {
	args := m.Called(user.UserID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockRegistrationService) Unregister(ctx context.Context, user models.Identity, eventID int) error {
	return m.Called(user.UserID, eventID).Error(0)
}

func (m *MockRegistrationService) Get(ctx context.Context, userID string, eventID int) (*models.Registration, error) {
	args := m.Called(userID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockRegistrationService) List(ctx context.Context, userID string) ([]models.Registration, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockRegistrationService) Profile(ctx context.Context, user models.Identity) (*models.Profile, error) {
	args := m.Called(user.UserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockRegistrationService) Calendar(ctx context.Context, user models.Identity, duration time.Duration) (string, error) {
	args := m.Called(user.UserID, duration)
	return args.String(0), args.Error(1)
}

type MockPassService struct {
	mock.Mock
}

func (m *MockPassService) PassPNG(ctx context.Context, userID string, eventID, size int) ([]byte, error) {
	args := m.Called(userID, eventID, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPassService) Verify(ctx context.Context, token string) (*models.PassVerification, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PassVerification), args.Error(1)
}

var ada = models.Identity{UserID: "u-1", Name: "Ada", Email: "ada@example.com"}

func newRouter(h *registration_api.Handler, signedIn bool) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		if signedIn {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), ada)))
				})
			})
		}
		h.RegisterRoutes(r)
	})
	return r
}

func newHandler() (*registration_api.Handler, *MockRegistrationService, *MockPassService) {
	regs := new(MockRegistrationService)
	passes := new(MockPassService)
	return &registration_api.Handler{
		Registrations: regs,
		Passes:        passes,
		EventDuration: 2 * time.Hour,
		Logger:        logger.NewWithWriter(nil),
	}, regs, passes
}

func serve(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func TestCreateRegistration(t *testing.T) {
	h, regs, _ := newHandler()
	regs.On("Register", "u-1", 3).Return(&models.Registration{EventID: 3, Title: "Powder Canister"}, nil).Once()
	regs.On("Register", "u-1", 3).Return(nil, models.ErrAlreadyRegistered).Once()
	regs.On("Register", "u-1", 404).Return(nil, models.ErrEventNotFound)
	router := newRouter(h, true)

	rec := serve(router, "POST", "/api/registrations/3", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.EventID)
	assert.NotContains(t, rec.Body.String(), "u-1", "user id is not echoed in registrations")

	assert.Equal(t, http.StatusConflict, serve(router, "POST", "/api/registrations/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "POST", "/api/registrations/404", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, "POST", "/api/registrations/zero", nil).Code)
}

func TestDeleteRegistration(t *testing.T) {
	h, regs, _ := newHandler()
	regs.On("Unregister", "u-1", 3).Return(nil).Once()
	regs.On("Unregister", "u-1", 3).Return(models.ErrRegistrationNotFound).Once()
	router := newRouter(h, true)

	assert.Equal(t, http.StatusNoContent, serve(router, "DELETE", "/api/registrations/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "DELETE", "/api/registrations/3", nil).Code)
}

func TestGetAndListRegistrations(t *testing.T) {
	h, regs, _ := newHandler()
	regs.On("Get", "u-1", 3).Return(&models.Registration{EventID: 3}, nil)
	regs.On("Get", "u-1", 4).Return(nil, models.ErrRegistrationNotFound)
	regs.On("List", "u-1").Return([]models.Registration{{EventID: 3}, {EventID: 8}}, nil)
	router := newRouter(h, true)

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/api/registrations/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/api/registrations/4", nil).Code)

	rec := serve(router, "GET", "/api/registrations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestGetProfile(t *testing.T) {
	h, regs, _ := newHandler()
	regs.On("Profile", "u-1").Return(&models.Profile{
		User:          ada,
		Registrations: []models.Registration{{EventID: 1, Price: 9.99, Category: "beauty"}},
		Summary:       models.ProfileSummary{TotalEvents: 1, TotalSpend: 9.99, Categories: 1, CategoryNames: []string{"beauty"}},
	}, nil)

	rec := serve(newRouter(h, true), "GET", "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ada@example.com", body.Data.User.Email)
	assert.Equal(t, 9.99, body.Data.Summary.TotalSpend)
	assert.Equal(t, []string{"beauty"}, body.Data.Summary.CategoryNames)
}

func TestGetCalendar(t *testing.T) {
	h, regs, _ := newHandler()
	regs.On("Calendar", "u-1", 2*time.Hour).Return("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil)

	rec := serve(newRouter(h, true), "GET", "/api/profile/calendar.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestGetPass(t *testing.T) {
	h, _, passes := newHandler()
	passes.On("PassPNG", "u-1", 3, 0).Return([]byte("\x89PNG"), nil)
	passes.On("PassPNG", "u-1", 4, 0).Return(nil, models.ErrRegistrationNotFound)
	router := newRouter(h, true)

	rec := serve(router, "GET", "/api/registrations/3/pass.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/api/registrations/4/pass.png", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/api/registrations/3/pass.png?size=5000", nil).Code)
}

func TestVerifyPass(t *testing.T) {
	h, _, passes := newHandler()
	passes.On("Verify", "good").Return(&models.PassVerification{Valid: true, Claims: &models.PassClaims{UserID: "u-1", EventID: 3}}, nil)
	passes.On("Verify", "bad").Return(nil, models.ErrInvalidPass)
	router := newRouter(h, true)

	rec := serve(router, "POST", "/api/passes/verify", []byte(`{"pass":"good"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.PassVerification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Valid)

	assert.Equal(t, http.StatusUnprocessableEntity, serve(router, "POST", "/api/passes/verify", []byte(`{"pass":"bad"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, "POST", "/api/passes/verify", []byte(`{}`)).Code)
}

func TestRoutesRequireUser(t *testing.T) {
	h, _, _ := newHandler()
	router := newRouter(h, false)

	for _, path := range []string{"/api/profile", "/api/registrations", "/api/registrations/1"} {
		assert.Equal(t, http.StatusUnauthorized, serve(router, "GET", path, nil).Code, path)
	}
}

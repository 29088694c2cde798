package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"plumbline/internal/common"
	"plumbline/internal/identity"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	claims *identity.Claims
	err    error
}

func (v stubVerifier) Verify(ctx context.Context, token string) (*identity.Claims, error) {
	return v.claims, v.err
}

type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) Create(ctx context.Context, req *services.CreateTenantRequest) (*models.Tenant, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Update(ctx context.Context, req *services.UpdateTenantRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockTenantService) Suspend(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantService) Reactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func signupRequest(body, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateTenantRequiresToken(t *testing.T) {
	tenantSvc := new(MockTenantService)
	h := NewTenantHandlers(tenantSvc, stubVerifier{err: common.ErrUnauthenticated})

	c, rec := signupRequest(`{"name":"Jansen","subdomain":"jansen"}`, "")

	require.NoError(t, h.CreateTenant(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	tenantSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateTenantOwnerComesFromToken(t *testing.T) {
	claims := &identity.Claims{
		Email:            "piet@jansen.nl",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "auth0|piet"},
	}
	tenantSvc := new(MockTenantService)
	// A body naming someone else as owner must be ignored; only the verified
	// subject reaches the service.
	tenantSvc.On("Create", mock.Anything, mock.MatchedBy(func(req *services.CreateTenantRequest) bool {
		return req.OwnerSubject == "auth0|piet" && req.OwnerEmail == "piet@jansen.nl"
	})).Return(&models.Tenant{ID: uuid.New(), Subdomain: "jansen"}, nil)

	h := NewTenantHandlers(tenantSvc, stubVerifier{claims: claims})

	body := `{"name":"Jansen","subdomain":"jansen","owner_subject":"auth0|aanvaller"}`
	c, rec := signupRequest(body, "Bearer token")

	require.NoError(t, h.CreateTenant(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	tenantSvc.AssertExpectations(t)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"billhive/internal/common"
	"billhive/internal/models"
	"billhive/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) GenerateTokens(ctx context.Context, userID uuid.UUID, role string) (*models.TokenResponse, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

func (m *MockAuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func runMiddleware(t *testing.T, authSvc services.AuthService, authHeader string) (int, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	handler := JWTMiddleware(authSvc)(func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	return rec.Code, captured, err
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	mockAuth := &MockAuthService{}
	userID := uuid.New()

	mockAuth.On("ValidateToken", mock.Anything, "good-token").Return(&services.TokenClaims{
		UserID: userID.String(),
		Role:   models.UserRoleUser,
	}, nil).Once()

	code, captured, err := runMiddleware(t, mockAuth, "Bearer good-token")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	gotID, ok := common.GetUserIDFromContext(captured.Request().Context())
	require.True(t, ok)
	assert.Equal(t, userID, gotID)

	gotRole, ok := common.GetUserRoleFromContext(captured.Request().Context())
	require.True(t, ok)
	assert.Equal(t, models.UserRoleUser, gotRole)
	mockAuth.AssertExpectations(t)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mockAuth := &MockAuthService{}

	_, _, err := runMiddleware(t, mockAuth, "")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	mockAuth.AssertNotCalled(t, "ValidateToken")
}

func TestJWTMiddleware_NotBearer(t *testing.T) {
	mockAuth := &MockAuthService{}

	_, _, err := runMiddleware(t, mockAuth, "Basic dXNlcjpwYXNz")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	mockAuth := &MockAuthService{}

	mockAuth.On("ValidateToken", mock.Anything, "bad-token").Return((*services.TokenClaims)(nil), assert.AnError).Once()

	_, _, err := runMiddleware(t, mockAuth, "Bearer bad-token")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	mockAuth.AssertExpectations(t)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret = "super-secret-jwt-token-for-tests"
	userID    = "3f1c2b7e-8d4a-4c6b-9e2f-1a2b3c4d5e6f"
)

func newApp() *fiber.App {
	cfg := config.Config{Supabase: config.Supabase{JWTSecret: jwtSecret}}
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func request(t *testing.T, app *fiber.App, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := utils.GenerateToken(jwtSecret, userID, time.Hour)
	require.NoError(t, err)

	resp := request(t, newApp(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	wrongSecret, err := utils.GenerateToken("another-secret", userID, time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(jwtSecret, userID, -time.Minute)
	require.NoError(t, err)
	notUUID, err := utils.GenerateToken(jwtSecret, "42", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"empty bearer":   "Bearer ",
		"wrong secret":   "Bearer " + wrongSecret,
		"expired":        "Bearer " + expired,
		"subject":        "Bearer " + notUUID,
	}
	app := newApp()
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp := request(t, app, header)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

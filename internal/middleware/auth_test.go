package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", RequireToken(), func(c *fiber.Ctx) error {
		return c.SendString(Token(c))
	})
	return app
}

func TestRequireTokenRejectsMissing(t *testing.T) {
	app := newAuthApp()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireTokenAcceptsHeaders(t *testing.T) {
	cases := []struct {
		name   string
		header string
		value  string
	}{
		{"custom header", "X-Access-Token", "gho_abc"},
		{"bearer", "Authorization", "Bearer gho_abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAuthApp()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set(tc.header, tc.value)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
		})
	}
}

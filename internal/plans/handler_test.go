package plans

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/session"
)

func newTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("identity", session.Identity{ID: "u1", Role: session.RoleUser})
		return c.Next()
	})
	app.Post("/plans/:planId/subscribe", h.Subscribe)
	return app, svc
}

func TestSubscribeUnderfundedReturnsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/plans/starter/subscribe", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d for underfunded subscription, got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestSubscribeUnknownPlanReturnsNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/plans/platinum/subscribe", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown plan, got %d", resp.StatusCode)
	}
}

func TestSubscribeBlockedTierReturnsForbidden(t *testing.T) {
	app, svc := newTestApp(t)

	blocked := true
	if _, err := svc.UpdateEligibility(context.Background(), "u1", EligibilityPatch{DisallowStarter: &blocked}); err != nil {
		t.Fatalf("update eligibility: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/plans/starter/subscribe", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for blocked tier, got %d", resp.StatusCode)
	}
}

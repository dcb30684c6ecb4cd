package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "Alice@Example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.Role != "user" {
		t.Fatalf("expected user role, got %s", user.Role)
	}

	got, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "not-an-email", Password: "long enough"}); err == nil {
		t.Fatal("expected email validation error")
	}
	if _, err := svc.Register(ctx, Credentials{Email: "a@b.com", Password: "short"}); err == nil {
		t.Fatal("expected password length error")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "a@b.com", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "A@B.com", Password: "long enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestResolveByIDOrEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "a@b.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	byID, err := svc.Resolve(ctx, user.ID)
	if err != nil || byID.ID != user.ID {
		t.Fatalf("resolve by id: %v %+v", err, byID)
	}
	byEmail, err := svc.Resolve(ctx, "A@b.com")
	if err != nil || byEmail.ID != user.ID {
		t.Fatalf("resolve by email: %v %+v", err, byEmail)
	}
	if _, err := svc.Resolve(ctx, "missing@b.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersKeysetPagination(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		email := string(rune('a'+i)) + "@example.com"
		if _, err := svc.Register(ctx, Credentials{Email: email, Password: "long enough"}); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := svc.ListUsers(ctx, cursor, "", 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, u := range page.Users {
			if seen[u.ID] {
				t.Fatalf("user %s repeated across pages", u.ID)
			}
			seen[u.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 users across pages, got %d", len(seen))
	}

	page, err := svc.ListUsers(ctx, "", "c@", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].Email != "c@example.com" {
		t.Fatalf("unexpected search result: %+v", page.Users)
	}
}

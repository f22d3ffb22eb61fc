package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

type stubAuthRepo struct {
	users map[string]*domain.User
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = user.Username
	}
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

const testAddress = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	user, err := svc.Register(context.Background(), "alice", "pass1234", domain.RoleManager, testAddress)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user == nil {
		t.Fatalf("expected user, got nil")
	}
	if user.PasswordHash == "pass1234" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleManager {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if user.Address != domain.Principal(testAddress) {
		t.Fatalf("unexpected address: %s", user.Address)
	}
}

func TestAuthService_Register_NormalizesAddress(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	user, err := svc.Register(context.Background(), "alice", "pass1234", domain.RoleCustomer,
		"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Address != domain.Principal(testAddress) {
		t.Fatalf("address not lowercased: %s", user.Address)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "pass1234", domain.RoleCustomer, testAddress); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("empty username: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "pass1234", "admin", testAddress); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown role: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "pass1234", domain.RoleCustomer, "not-an-address"); !errors.Is(err, domain.ErrInvalidPrincipal) {
		t.Fatalf("bad address: expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pass1234", domain.RoleCustomer, testAddress); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "other123", domain.RoleCustomer, testAddress); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pass1234", domain.RoleManager, testAddress); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	token, user, err := svc.Login(ctx, "alice", "pass1234")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["username"] != "alice" || claims["role"] != domain.RoleManager {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims["address"] != testAddress {
		t.Fatalf("token missing principal address: %+v", claims)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pass1234", domain.RoleManager, testAddress); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "ghost", "pass1234"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

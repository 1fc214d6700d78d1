package server

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/world"
)

func openTestStore(t *testing.T) *boltstore.Store {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAuthRegisterLoginValidate(t *testing.T) {
	store := openTestStore(t)
	auth := NewAuthService(store, "test-secret", 60, "test")

	if _, err := auth.Register("alice", "hunter2", world.TeamBlue, "Ezreal"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := auth.Register("Alice", "hunter2", world.TeamBlue, "Ezreal"); !errors.Is(err, boltstore.ErrAccountExists) {
		t.Errorf("duplicate Register error = %v", err)
	}

	token, err := auth.Login("alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Account != "alice" || claims.Team != world.TeamBlue || claims.Champion != "Ezreal" || claims.Admin {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := auth.Login("alice", "wrong"); err == nil {
		t.Error("Login with wrong password succeeded")
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	auth := NewAuthService(openTestStore(t), "s", 60, "test")
	if _, err := auth.Register("bob", "pw", world.TeamBlue, ""); err == nil {
		t.Error("short password accepted")
	}
	if _, err := auth.Register("bob", "password", world.TeamNeutral, ""); err == nil {
		t.Error("neutral team accepted")
	}
}

func TestAuthRejectsForeignToken(t *testing.T) {
	store := openTestStore(t)
	a := NewAuthService(store, "one", 60, "test")
	b := NewAuthService(store, "two", 60, "test")
	token, err := a.Guest("", world.TeamPurple, "")
	if err != nil {
		t.Fatalf("Guest: %v", err)
	}
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("token signed with another key validated")
	}
	if _, err := a.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestAuthRefreshPicksUpAdmin(t *testing.T) {
	store := openTestStore(t)
	auth := NewAuthService(store, "secret", 60, "test")
	token, err := auth.Register("carol", "password", world.TeamPurple, "Lux")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := store.SetAdmin("carol", true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	refreshed, err := auth.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	claims, err := auth.ValidateToken(refreshed)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !claims.Admin {
		t.Error("refreshed token should carry admin")
	}
}

func TestAuthGuest(t *testing.T) {
	store := openTestStore(t)
	auth := NewAuthService(store, "secret", 60, "test")
	if _, err := auth.Register("dave", "password", world.TeamBlue, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Guest("dave", world.TeamBlue, ""); err == nil {
		t.Error("guest took a registered name")
	}

	token, err := auth.Guest("", world.TeamBlue, "Garen")
	if err != nil {
		t.Fatalf("Guest: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if len(claims.Account) <= len("Guest-") || claims.Admin {
		t.Errorf("guest claims = %+v", claims)
	}
}

func TestAuthWithoutStore(t *testing.T) {
	auth := NewAuthService(nil, "", 0, "test")
	if _, err := auth.Login("x", "y"); err == nil {
		t.Error("Login without a store succeeded")
	}
	if _, err := auth.Register("x", "password", world.TeamBlue, ""); err == nil {
		t.Error("Register without a store succeeded")
	}
	token, err := auth.Guest("eve", world.TeamBlue, "")
	if err != nil {
		t.Fatalf("Guest: %v", err)
	}
	if _, err := auth.RefreshToken(token); err != nil {
		t.Errorf("RefreshToken: %v", err)
	}
}

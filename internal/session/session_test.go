package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"taskman/internal/apperr"
	"taskman/internal/backend/restapi"
	"taskman/internal/service"
	"taskman/internal/session"
	"taskman/internal/testutil"
)

func TestLogin_ValidCredentials(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("ada@example.com", "pw")
	st := session.New(svc, nil, nil)

	sess, err := st.Login(context.Background(), " ada@example.com ", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Token == "" {
		t.Error("expected non-empty token")
	}
	if sess.Email != "ada@example.com" {
		t.Errorf("expected trimmed email, got %q", sess.Email)
	}
	if !st.LoggedIn() || st.Token() != sess.Token {
		t.Error("state should hold the new token")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("ada@example.com", "pw")
	st := session.New(svc, nil, nil)

	_, err := st.Login(context.Background(), "ada@example.com", "nope")
	if !apperr.Is(err, apperr.AuthInvalidCredentials) {
		t.Fatalf("expected AuthInvalidCredentials, got %v", err)
	}
	if err.Error() != "Invalid credentials. Please try again." {
		t.Errorf("unexpected message %q", err.Error())
	}
	if st.LoggedIn() {
		t.Error("failed login must not set a token")
	}
}

func TestLogin_Unreachable(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.LoginErr = errors.New("dial tcp: connection refused")
	st := session.New(svc, nil, nil)

	_, err := st.Login(context.Background(), "ada@example.com", "pw")
	if !apperr.Is(err, apperr.AuthUnreachable) {
		t.Fatalf("expected AuthUnreachable, got %v", err)
	}
}

func TestLogin_AgainstRESTAPI(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser(t, "ada@example.com", "pw")
	st := session.New(restapi.NewAuth(context.Background(), api.URL()), nil, nil)

	sess, err := st.Login(context.Background(), "ada@example.com", "pw")
	if err != nil || sess.Token == "" {
		t.Fatalf("expected token, got %q, %v", sess.Token, err)
	}
	_, err = st.Login(context.Background(), "ada@example.com", "bad")
	if !apperr.Is(err, apperr.AuthInvalidCredentials) {
		t.Errorf("expected AuthInvalidCredentials, got %v", err)
	}
}

func TestLogout_ClearsTokenAndStore(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("ada@example.com", "pw")
	path := filepath.Join(t.TempDir(), "session.json")
	st := session.New(svc, session.NewFileStore(path), nil)

	if _, err := st.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	calls := svc.TotalCalls()
	if err := st.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if st.LoggedIn() || st.Token() != "" {
		t.Error("token should be cleared")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file should be removed")
	}
	if svc.TotalCalls() != calls {
		t.Error("logout must not call the server")
	}
}

func TestRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewFileStore(path)
	if err := store.Save(session.Session{Token: "tok", Email: "ada@example.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	st := session.New(nil, store, nil)
	ok, err := st.Restore()
	if err != nil || !ok {
		t.Fatalf("expected restored session, got %v, %v", ok, err)
	}
	if st.Token() != "tok" {
		t.Errorf("expected token tok, got %q", st.Token())
	}
}

func TestRestore_Nothing(t *testing.T) {
	st := session.New(nil, session.NewFileStore(filepath.Join(t.TempDir(), "session.json")), nil)

	ok, err := st.Restore()
	if err != nil || ok {
		t.Fatalf("expected no session, got %v, %v", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := &session.MemoryStore{}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	store.Save(session.Session{Token: "t"})
	if s, err := store.Load(); err != nil || s.Token != "t" {
		t.Fatalf("unexpected %+v, %v", s, err)
	}
	store.Clear()
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc := testutil.NewFakeService()
	st := session.New(svc, nil, nil)
	req := service.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"}

	if err := st.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if st.LoggedIn() {
		t.Error("register must not log in")
	}
	err := st.Register(context.Background(), req)
	if !apperr.Is(err, apperr.RegisterFailed) {
		t.Errorf("expected RegisterFailed for duplicate, got %v", err)
	}
}

package services

import (
	"fmt"
	"testing"
	"time"
)

type stubAuthStore struct {
	byEmail map[string]*AdminUser
}

func (s *stubAuthStore) FindAdminByEmail(email string) (*AdminUser, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, nil
}

func (s *stubAuthStore) AddAdmin(u *AdminUser) error {
	s.byEmail[u.Email] = u
	return nil
}

func testSigner(uid, email string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("tok-%s-%s", uid, email), nil
}

func TestRegisterAndLogin(t *testing.T) {
	store := &stubAuthStore{byEmail: map[string]*AdminUser{}}
	svc := NewAuthService(store, testSigner)

	res, err := svc.Register("admin@lab.test", "Secret123!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Token == "" || res.UserID == "" {
		t.Fatalf("register result incomplete: %+v", res)
	}

	login, err := svc.Login("admin@lab.test", "Secret123!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if login.UserID != res.UserID {
		t.Fatalf("login user = %q, want %q", login.UserID, res.UserID)
	}

	if _, err := svc.Login("admin@lab.test", "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if _, err := svc.Register("admin@lab.test", "again"); err == nil {
		t.Fatalf("duplicate email accepted")
	}

	se, ok := AsServiceError(func() error { _, err := svc.Login("", ""); return err }())
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("empty credentials error = %v, want invalid", se)
	}
}

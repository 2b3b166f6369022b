package api

import "github.com/soaringpine/studyflow/internal/services"

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindAdminByEmail(email string) (*services.AdminUser, error) {
	u, err := a.store.FindAdminByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return &services.AdminUser{ID: u.ID, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt}, nil
}

func (a *authStoreAdapter) AddAdmin(u *services.AdminUser) error {
	if u == nil {
		return services.NewInvalidError("admin user required")
	}
	return a.store.AddAdmin(&AdminUser{ID: u.ID, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt})
}

var _ services.AuthStore = (*authStoreAdapter)(nil)

package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
)

// EnsureAdminUser creates the ADMIN account named in config when it is missing.
func EnsureAdminUser(ctx context.Context, store service.Store, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	accounts := service.NewAccounts(store, security.NewHasher(), service.WithLogger(log))

	_, err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	return err
}

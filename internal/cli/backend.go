package cli

import (
	"context"
	"io"
	"log/slog"

	"taskman/internal/backend/googletasks"
	"taskman/internal/backend/restapi"
	"taskman/internal/config"
	"taskman/internal/service"
)

// NewService is the ServiceFactory for the configured backend.
func NewService(ctx context.Context, cfg *config.Config, token string, log *slog.Logger) (service.Service, error) {
	if cfg.Backend == config.BackendGoogle {
		c, err := googletasks.New(ctx, cfg, token, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return restapi.New(ctx, cfg.APIURL, token, restapi.WithLogger(log)), nil
}

// NewAuthenticator is the AuthFactory for the configured backend.
// prompt receives interactive instructions (the Google consent URL).
func NewAuthenticator(ctx context.Context, cfg *config.Config, prompt io.Writer, log *slog.Logger) (service.Authenticator, error) {
	if cfg.Backend == config.BackendGoogle {
		return googletasks.NewAuthenticator(cfg, prompt), nil
	}
	return restapi.NewAuth(ctx, cfg.APIURL, restapi.WithLogger(log)), nil
}

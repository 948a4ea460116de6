package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/hunyuan"
)

// ModelGenerator is the provider contract the generate endpoint depends on.
type ModelGenerator interface {
	GenerateModel(ctx context.Context, img domain.SourceImage, opts domain.Options) (*hunyuan.Model, error)
}

// App bundles the dependencies shared by the HTTP handlers.
type App struct {
	Config    *infra.Config
	Logger    infra.Logger
	Generator ModelGenerator
}

// NewApp builds the handler container.
func NewApp(cfg *infra.Config, logger infra.Logger, generator ModelGenerator) *App {
	return &App{Config: cfg, Logger: logger, Generator: generator}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the {"error": ...} envelope the frontend client expects.
func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

package nginx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// ErrValidateFailed marks a generated configuration the proxy's own syntax
// check rejected. It indicates a generator defect, not a transient fault.
var ErrValidateFailed = errors.New("generated configuration failed validation")

// Applier swaps a freshly rendered configuration into the live path. The
// live file is only ever replaced by a staged file that already passed
// validation, so the prior known-good configuration keeps serving traffic
// whenever anything here fails.
type Applier struct {
	renderer Renderer
	control  Controller
	livePath string
	logger   *slog.Logger
}

// NewApplier creates an Applier writing the live configuration to livePath.
func NewApplier(renderer Renderer, control Controller, livePath string, logger *slog.Logger) *Applier {
	return &Applier{
		renderer: renderer,
		control:  control,
		livePath: livePath,
		logger:   logger,
	}
}

// Apply renders a configuration for the healthy set, validates it in a
// staging location, and atomically promotes it before reloading the proxy.
// Each step runs only if the previous one succeeded.
func (a *Applier) Apply(ctx context.Context, healthy endpoint.Set) error {
	rendered, err := a.renderer.Render(healthy)
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(a.livePath), 0o755); err != nil {
		return fmt.Errorf("creating configuration directory: %w", err)
	}

	stagedPath := a.livePath + ".staged"
	if err := os.WriteFile(stagedPath, rendered, 0o644); err != nil {
		return fmt.Errorf("writing staged configuration: %w", err)
	}

	if err := a.control.Validate(ctx, stagedPath); err != nil {
		os.Remove(stagedPath)
		a.logger.Error("Generated configuration rejected by validation",
			slog.String("staged", stagedPath),
			slog.Any("err", err))
		return fmt.Errorf("%w: %v", ErrValidateFailed, err)
	}

	if err := os.Rename(stagedPath, a.livePath); err != nil {
		os.Remove(stagedPath)
		return fmt.Errorf("promoting staged configuration: %w", err)
	}

	if err := a.control.Reload(ctx); err != nil {
		return fmt.Errorf("reloading proxy: %w", err)
	}

	a.logger.Info("Applied configuration",
		slog.String("path", a.livePath),
		slog.Int("upstreams", healthy.Len()))
	return nil
}

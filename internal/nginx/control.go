package nginx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Controller is the proxy control surface: syntax-check a candidate file
// and reload the running workers without dropping in-flight connections.
type Controller interface {
	Validate(ctx context.Context, configPath string) error
	Reload(ctx context.Context) error
}

// ExecController drives nginx through its own binary: `nginx -t` for
// validation and `nginx -s reload` for a graceful reload.
type ExecController struct {
	binary string
	logger *slog.Logger
}

// NewExecController creates a Controller invoking the given nginx binary.
func NewExecController(binary string, logger *slog.Logger) *ExecController {
	return &ExecController{binary: binary, logger: logger}
}

// Validate runs the proxy's syntax check against configPath. The rendered
// file holds only http-context directives, and `nginx -t -c` parses its
// argument as a complete main configuration, so the snippet is wrapped in a
// throwaway main config for the check.
func (c *ExecController) Validate(ctx context.Context, configPath string) error {
	wrapper, err := writeValidationWrapper(configPath)
	if err != nil {
		return fmt.Errorf("staging validation wrapper: %w", err)
	}
	defer os.Remove(wrapper)

	cmd := exec.CommandContext(ctx, c.binary, "-t", "-c", wrapper)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s -t: %v: %s", c.binary, err, output)
	}

	c.logger.Debug("Configuration validated", slog.String("path", configPath))
	return nil
}

// writeValidationWrapper writes a minimal main configuration with events and
// http sections that includes snippetPath, and returns its path. The caller
// removes it after the check.
func writeValidationWrapper(snippetPath string) (string, error) {
	abs, err := filepath.Abs(snippetPath)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(abs), "meshfront-validate-*.conf")
	if err != nil {
		return "", err
	}

	_, werr := fmt.Fprintf(f, "events {}\nhttp {\n    include %s;\n}\n", abs)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(f.Name())
		if werr != nil {
			return "", werr
		}
		return "", cerr
	}

	return f.Name(), nil
}

// Reload signals the running proxy to pick up the live configuration.
func (c *ExecController) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.binary, "-s", "reload")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s -s reload: %v: %s", c.binary, err, output)
	}

	c.logger.Info("Proxy reloaded")
	return nil
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"framediff/internal/config"
	"framediff/internal/deps"
	"framediff/internal/services"
	"framediff/internal/services/vlm"
)

const modelCheckTimeout = 30 * time.Second

// CheckModel verifies that the model service is reachable and the key is
// valid. It makes a single attempt.
func CheckModel(ctx context.Context, cfg *config.Config) Result {
	name := "Model (" + cfg.VLM.Model + ")"
	if cfg.VLM.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set vlm.api_key or OPENAI_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	client := vlm.NewClient(vlm.Config{
		APIKey:         cfg.VLM.APIKey,
		BaseURL:        cfg.VLM.BaseURL,
		Model:          cfg.VLM.Model,
		TimeoutSeconds: cfg.VLM.TimeoutSeconds,
	}, vlm.WithRetryPolicy(vlm.RetryPolicy{MaxAttempts: 1}))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeModelError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that path is a readable directory, and
// writable too when writable is set.
func CheckDirectoryAccess(name, path string, writable bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	access := "read ok"
	if writable {
		mode |= unix.W_OK
		access = "read/write ok"
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, access)}
}

// CheckSystemDeps evaluates the external binaries used by frame extraction.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func summarizeModelError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (model API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (model API unreachable)"
	}
	if errors.Is(err, services.ErrRequest) {
		return "request rejected: " + err.Error()
	}
	return err.Error()
}

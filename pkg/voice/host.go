package voice

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLookPath LookPathFunc = exec.LookPath
	defaultGOOS                  = runtime.GOOS
)

const DefaultProbeTimeout = 3 * time.Second

// ProbeHost reports whether the host can speak natively: it must be macOS, have say(1)
// on the path, and list its voices within the probe timeout. A timeout counts as
// unavailable.
func ProbeHost(ctx context.Context, deps Dependencies, timeout time.Duration) HostCapabilities {
	deps = deps.withDefaults()
	logger := *deps.Logger

	if deps.GOOS != "darwin" {
		logger.Debug().Str("os", deps.GOOS).Msg("native speech needs macOS")
		return HostCapabilities{}
	}
	if _, err := deps.LookPath("say"); err != nil {
		logger.Debug().Err(err).Msg("say not found")
		return HostCapabilities{}
	}

	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := deps.Runner.Run(ctx, "say", []string{"-v", "?"}, nil); err != nil {
		probeFailure(ctx, logger).Err(err).Dur("duration", time.Since(start)).Msg("native speech probe failed")
		return HostCapabilities{}
	}

	return HostCapabilities{NativeSpeech: true}
}

func probeFailure(ctx context.Context, logger zerolog.Logger) *zerolog.Event {
	if ctx.Err() != nil {
		return logger.Warn().Bool("timed_out", true)
	}
	return logger.Debug()
}

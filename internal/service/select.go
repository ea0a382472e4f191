package service

import (
	"runtime"

	"go.uber.org/zap"
)

// Select returns the single service backend applicable to the running
// OS, gated on its availability probe. A nil return is a normal
// outcome on an unsupported platform, not an error. Selection is fresh
// per call; no backend instance is cached across invocations.
func Select(logger *zap.Logger, opts Options) Backend {
	return gate(backendFor(runtime.GOOS, logger, opts))
}

// backendFor maps the OS identity onto its one backend variant. The
// variant set is closed: systemd, launchd, windows.
func backendFor(goos string, logger *zap.Logger, opts Options) Backend {
	switch goos {
	case "linux":
		return NewSystemd(logger, opts)
	case "darwin":
		return NewLaunchd(logger, opts)
	case "windows":
		return NewWindows(logger, opts)
	}
	return nil
}

func gate(b Backend) Backend {
	if b == nil || !b.IsAvailable() {
		return nil
	}
	return b
}

// Package system wraps host facilities: file limits, ffmpeg discovery,
// ffprobe, pooled frame buffers and host statistics.
package system

import (
	"log/slog"
	"syscall"
)

// DefaultOpenFiles is the soft RLIMIT_NOFILE requested at startup. Export
// keeps one pipe and one segment file open per worker.
const DefaultOpenFiles = 2048

// InitResourceLimits raises the open file limit to want, capped at the hard
// limit.
func InitResourceLimits(logger *slog.Logger, want uint64) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("cannot read open file limit", "error", err)
		return
	}
	if rLimit.Cur >= want {
		return
	}

	rLimit.Cur = want
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("cannot raise open file limit", "error", err)
		return
	}
	logger.Debug("open file limit raised", "limit", rLimit.Cur)
}

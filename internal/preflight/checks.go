package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"docflow/internal/config"
	"docflow/internal/sequence"
)

// MinFreeBytes is the free space below which the state directory check fails.
const MinFreeBytes uint64 = 64 << 20

// Pinger is satisfied by both store implementations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least min bytes free.
func CheckFreeSpace(name, path string, min uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free", humanBytes(free))
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need at least %s)", detail, humanBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckStore pings the document store with a short timeout.
func CheckStore(ctx context.Context, name string, store Pinger) Result {
	if store == nil {
		return Result{Name: name, Detail: "store unavailable"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckRedisSequence verifies the Redis numbering backend and reports the
// last issued value.
func CheckRedisSequence(ctx context.Context, cfg *config.Config, logger *slog.Logger) Result {
	const name = "Numbering (redis)"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	seq, err := sequence.OpenRedis(checkCtx, cfg, logger)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer seq.Close()

	current, err := seq.Current(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (last issued %d)", cfg.Numbering.RedisKey, current)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (unreachable)"
	}
	return err.Error()
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
)

const (
	agentBinary     = "agent"
	downloadRetries = 4
)

// Config holds the updater settings.
type Config struct {
	// StableSource is the release to fall back to when the configured
	// source fails or the agent process has died.
	StableSource Source
	// WorkDir is where tarballs are unpacked and the agent binary runs.
	WorkDir string
	// SourceDir holds the per-PID agent-source files a running agent may
	// write to redirect its own updates.
	SourceDir string
	// AgentArgs are passed through to the agent on start.
	AgentArgs []string
}

// Updater supervises the local agent and keeps it on the advertised
// release version. It is not safe for concurrent use; run checks from a
// single scheduler.
type Updater struct {
	cfg    Config
	store  objectStore
	logger *slog.Logger
	start  func(bin string, args []string, dir string) (process, error)

	proc    process
	version string
}

// New returns an Updater backed by the given GCS client.
func New(client *storage.Client, cfg Config, logger *slog.Logger) *Updater {
	return &Updater{
		cfg:    cfg,
		store:  &gcsStore{client: client},
		logger: logger.With("component", "updater"),
		start:  startProcess,
	}
}

// CheckOnce performs one update cycle: resolve the update source, compare
// the advertised version with the running one, and download + restart the
// agent when they differ. If the agent is not alive afterwards the cycle
// repeats against the stable source.
func (u *Updater) CheckOnce(ctx context.Context) error {
	src := u.updateSource()
	remote, err := u.ReleaseVersion(ctx, src)
	if err != nil {
		return err
	}
	if remote != "" && remote != u.version {
		u.logger.Info("release version differs from local agent",
			"local", u.version, "remote", remote, "source", src.String())
		if err := u.restart(ctx, src); err != nil {
			u.logger.Error("agent update failed", "source", src.String(), "error", err)
		} else {
			u.version = remote
		}
	}

	if isAlive(u.proc) {
		return nil
	}

	// The agent never started or has died; back out to the stable release.
	src = u.cfg.StableSource
	u.logger.Info("agent is not running, reverting to stable release", "source", src.String())
	remote, err = u.ReleaseVersion(ctx, src)
	if err != nil {
		return err
	}
	if err := u.restart(ctx, src); err != nil {
		return err
	}
	u.version = remote
	return nil
}

// updateSource picks the release to check against. A running agent may
// name its own source in a per-PID file; otherwise, or when that file is
// unreadable, the stable source is used.
func (u *Updater) updateSource() Source {
	if !isAlive(u.proc) {
		return u.cfg.StableSource
	}
	raw, err := os.ReadFile(u.sourceFile(u.proc.PID()))
	if err != nil {
		return u.cfg.StableSource
	}
	src, err := ParseSource(strings.TrimSpace(string(raw)))
	if err != nil {
		u.logger.Warn("ignoring malformed agent-source file", "pid", u.proc.PID(), "error", err)
		return u.cfg.StableSource
	}
	return src
}

func (u *Updater) sourceFile(pid int) string {
	return filepath.Join(u.cfg.SourceDir, fmt.Sprintf("agent_source_%d.txt", pid))
}

// restart stops the running agent, downloads and unpacks the release from
// src, and starts the new binary.
func (u *Updater) restart(ctx context.Context, src Source) error {
	if isAlive(u.proc) {
		// The source file is keyed by PID; it dies with the process.
		if err := os.Remove(u.sourceFile(u.proc.PID())); err != nil && !os.IsNotExist(err) {
			u.logger.Warn("removing agent-source file", "pid", u.proc.PID(), "error", err)
		}
		if err := u.proc.Stop(); err != nil {
			u.logger.Warn("stopping agent", "pid", u.proc.PID(), "error", err)
		}
	}

	if err := u.download(ctx, src); err != nil {
		return err
	}
	proc, err := u.start(filepath.Join(u.cfg.WorkDir, agentBinary), u.cfg.AgentArgs, u.cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}
	u.logger.Info("agent started", "pid", proc.PID(), "source", src.String())
	u.proc = proc
	return nil
}

func (u *Updater) download(ctx context.Context, src Source) error {
	op := func() error {
		rc, err := u.store.Download(ctx, src.Bucket, src.Object)
		if err != nil {
			return err
		}
		defer rc.Close()
		return extractTarGz(rc, u.cfg.WorkDir)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), downloadRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("downloading %s: %w", src, err)
	}
	return nil
}

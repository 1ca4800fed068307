// Package git keeps a spark-prompt library directory in sync with a git remote.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single git invocation
const DefaultTimeout = 10 * time.Second

// ErrNotRepository is returned when the library has not been set up for sync
var ErrNotRepository = errors.New("library is not a git repository; run 'spark-prompt sync setup <url>'")

// Status summarizes the library against its remote
type Status struct {
	Initialized bool   `json:"initialized"`
	Remote      string `json:"remote,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Ahead       bool   `json:"ahead"`
	Behind      bool   `json:"behind"`
	Dirty       bool   `json:"dirty"`
}

// String describes the status in one phrase
func (s Status) String() string {
	switch {
	case !s.Initialized:
		return "Git not initialized"
	case s.Remote == "":
		return "No remote configured"
	case s.Dirty:
		return "Uncommitted changes"
	case s.Ahead && s.Behind:
		return "Diverged from remote"
	case s.Ahead:
		return "Changes need to be pushed"
	case s.Behind:
		return "Remote has new changes"
	default:
		return "In sync"
	}
}

// Sync runs git commands inside a library directory
type Sync struct {
	dir     string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSync creates a Sync for dir
func NewSync(dir string, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sync{dir: dir, timeout: DefaultTimeout, logger: logger, now: time.Now}
}

// Available reports whether the git binary can be found
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepository reports whether the library directory has git initialized
func (g *Sync) IsRepository() bool {
	_, err := os.Stat(filepath.Join(g.dir, ".git"))
	return err == nil
}

// Setup initializes the repository if needed and points origin at url.
// An existing remote history is pulled so the library starts from it.
func (g *Sync) Setup(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	if !g.IsRepository() {
		if _, err := g.run(ctx, "init"); err != nil {
			return fmt.Errorf("failed to initialize git repository: %w", err)
		}
		g.logger.Info("initialized library repository", zap.String("dir", g.dir))
	}

	current, _ := g.remoteURL(ctx)
	switch {
	case current == "":
		if _, err := g.run(ctx, "remote", "add", "origin", url); err != nil {
			return fmt.Errorf("failed to add remote: %w", err)
		}
	case current != url:
		if _, err := g.run(ctx, "remote", "set-url", "origin", url); err != nil {
			return fmt.Errorf("failed to update remote: %w", err)
		}
	}

	if _, err := g.run(ctx, "fetch", "origin"); err != nil {
		// an empty remote is fine; the first push creates it
		g.logger.Debug("fetch after setup failed", zap.Error(err))
		return nil
	}
	branches, err := g.run(ctx, "branch", "-r")
	if err != nil || strings.TrimSpace(branches) == "" {
		return nil
	}
	if !g.hasCommits(ctx) {
		branch := "main"
		if !strings.Contains(branches, "origin/main") && strings.Contains(branches, "origin/master") {
			branch = "master"
		}
		if _, err := g.run(ctx, "checkout", "-B", branch, "origin/"+branch); err != nil {
			return fmt.Errorf("failed to check out remote library: %w", err)
		}
	}
	return nil
}

// Status inspects the working tree and the tracking branch
func (g *Sync) Status(ctx context.Context) (Status, error) {
	if !g.IsRepository() {
		return Status{}, nil
	}
	st := Status{Initialized: true}
	st.Remote, _ = g.remoteURL(ctx)

	out, err := g.run(ctx, "status", "--porcelain", "--branch")
	if err != nil {
		return st, err
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "## ") {
		branch := strings.TrimPrefix(lines[0], "## ")
		branch = strings.TrimPrefix(branch, "No commits yet on ")
		st.Ahead = strings.Contains(branch, "ahead ")
		st.Behind = strings.Contains(branch, "behind ")
		if i := strings.IndexAny(branch, ". "); i >= 0 {
			branch = branch[:i]
		}
		st.Branch = branch
		lines = lines[1:]
	}
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			st.Dirty = true
			break
		}
	}
	return st, nil
}

// Commit stages every change in the library and commits it. It reports
// false when there was nothing to commit.
func (g *Sync) Commit(ctx context.Context, message string) (bool, error) {
	if !g.IsRepository() {
		return false, ErrNotRepository
	}
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w", err)
	}
	if _, err := g.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return false, nil
	} else if !isExitCode(err, 1) {
		return false, fmt.Errorf("failed to check for changes: %w", err)
	}

	if message == "" {
		message = "Update library"
	}
	message = fmt.Sprintf("%s - %s", message, g.now().Format("2006-01-02 15:04:05"))
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return false, fmt.Errorf("failed to commit changes: %w", err)
	}
	return true, nil
}

// Push sends local commits to origin
func (g *Sync) Push(ctx context.Context) error {
	if !g.IsRepository() {
		return ErrNotRepository
	}
	branch := g.currentBranch(ctx)
	if _, err := g.run(ctx, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// Pull fetches origin and merges it when the library is behind. Conflicts
// are resolved in favour of the local copy.
func (g *Sync) Pull(ctx context.Context) error {
	if !g.IsRepository() {
		return ErrNotRepository
	}
	if _, err := g.run(ctx, "fetch", "origin"); err != nil {
		return fmt.Errorf("failed to fetch from remote: %w", err)
	}
	st, err := g.Status(ctx)
	if err != nil {
		return err
	}
	if !st.Behind {
		return nil
	}

	branch := g.currentBranch(ctx)
	if _, err := g.run(ctx, "pull", "--no-rebase", "origin", branch); err != nil {
		g.logger.Warn("pull failed, keeping local changes", zap.Error(err))
		return g.resolveLocal(ctx)
	}
	return nil
}

// SyncChanges commits, pulls and pushes in one step
func (g *Sync) SyncChanges(ctx context.Context, message string) error {
	if _, err := g.Commit(ctx, message); err != nil {
		return err
	}
	if err := g.Pull(ctx); err != nil {
		return err
	}
	if err := g.Push(ctx); err != nil {
		return fmt.Errorf("committed locally but %w", err)
	}
	return nil
}

// Background pulls from origin every interval until ctx is done
func (g *Sync) Background(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Pull(ctx); err != nil && ctx.Err() == nil {
				g.logger.Warn("background sync failed", zap.Error(err))
			}
		}
	}
}

func (g *Sync) resolveLocal(ctx context.Context) error {
	out, err := g.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}
	files := strings.Fields(out)
	if len(files) == 0 {
		return fmt.Errorf("pull failed without conflicts; resolve manually in %s", g.dir)
	}
	for _, f := range files {
		if _, err := g.run(ctx, "checkout", "--ours", "--", f); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
	}
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return err
	}
	if _, err := g.run(ctx, "commit", "--no-edit"); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	g.logger.Info("resolved sync conflicts with local copies", zap.Strings("files", files))
	return nil
}

func (g *Sync) remoteURL(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Sync) hasCommits(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--verify", "HEAD")
	return err == nil
}

func (g *Sync) currentBranch(ctx context.Context) string {
	out, err := g.run(ctx, "branch", "--show-current")
	if branch := strings.TrimSpace(out); err == nil && branch != "" {
		return branch
	}
	return "main"
}

// run executes git in the library directory and returns its stdout
func (g *Sync) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()

	g.logger.Debug("git", zap.Strings("args", args), zap.Error(err))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s timed out after %v", strings.Join(args, " "), g.timeout)
		}
		return string(out), &commandError{args: args, stderr: strings.TrimSpace(stderr.String()), err: err}
	}
	return string(out), nil
}

type commandError struct {
	args   []string
	stderr string
	err    error
}

func (e *commandError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("git %s failed: %v", strings.Join(e.args, " "), e.err)
	}
	return fmt.Sprintf("git %s failed: %s", strings.Join(e.args, " "), e.stderr)
}

func (e *commandError) Unwrap() error { return e.err }

func isExitCode(err error, code int) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == code
}

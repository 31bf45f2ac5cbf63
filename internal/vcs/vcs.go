// Package vcs commits the workspace after each finished feature. Version
// control is best effort: a feature that builds, tests, and validates is done
// even when the commit or push fails, so callers log these errors instead of
// retrying the feature over them.
package vcs

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/felixgeelhaar/autodev/internal/config"
	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/log"
)

const remoteName = "origin"

// Repository wraps a git repository rooted at the workspace.
type Repository struct {
	repo   *git.Repository
	cfg    config.GitConfig
	logger *log.Logger
}

// EnsureRepository opens the repository at dir, initializing one on first
// run. When a remote URL is configured and the repository has none, the
// remote is registered as origin.
func EnsureRepository(dir string, cfg config.GitConfig, logger *log.Logger) (*Repository, error) {
	repo, err := git.PlainOpen(dir)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCSInit, fmt.Sprintf("cannot open repository at %s", dir), err).
			WithSuggestion("Check that the workspace directory is writable")
	}

	r := &Repository{repo: repo, cfg: cfg, logger: logger}

	if cfg.Remote != "" {
		if _, err := repo.Remote(remoteName); stderrors.Is(err, git.ErrRemoteNotFound) {
			_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
				Name: remoteName,
				URLs: []string{cfg.Remote},
			})
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeVCSInit, "cannot register remote "+cfg.Remote, err)
			}
		}
	}

	return r, nil
}

// Commit stages everything and commits it. Committing with a clean worktree
// is not an error: a retried feature can converge on content that is already
// committed.
func (r *Repository) Commit(message string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.Wrap(errors.ErrCodeVCSCommit, "cannot open worktree", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return errors.Wrap(errors.ErrCodeVCSCommit, "cannot stage changes", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.cfg.AuthorName,
			Email: r.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if stderrors.Is(err, git.ErrEmptyCommit) {
		r.logger.Debug("nothing to commit", "message", message)
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeVCSCommit, "commit failed", err)
	}

	r.logger.Info("committed", "hash", hash.String()[:8], "message", message)
	return nil
}

// Push pushes to the configured remote. Without a remote this is a no-op,
// and a remote that is already up to date is success.
func (r *Repository) Push(ctx context.Context) error {
	if r.cfg.Remote == "" || !r.cfg.Push {
		return nil
	}

	opts := &git.PushOptions{RemoteName: remoteName}
	if r.cfg.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "git", Password: r.cfg.Token}
	}

	err := r.repo.PushContext(ctx, opts)
	if stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeVCSPush, "push to "+r.cfg.Remote+" failed", err).
			WithSuggestion("Check the remote URL and credentials").
			WithSuggestion("Set git.token or the GITHUB_TOKEN environment variable for HTTPS remotes")
	}

	r.logger.Info("pushed", "remote", r.cfg.Remote)
	return nil
}

// Head returns the short hash of the current HEAD, or an empty string when
// the repository has no commits yet.
func (r *Repository) Head() string {
	ref, err := r.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()[:8]
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/registry"
)

// RepoService owns repository and file CRUD. Every operation takes the
// authenticated user and resolves repositories through the ownership-scoped
// registry lookup, so another user's repository id behaves exactly like a
// nonexistent one.
type RepoService struct {
	repos  registry.Repositories
	files  registry.Files
	logger *slog.Logger
}

// NewRepoService wires a RepoService.
func NewRepoService(repos registry.Repositories, files registry.Files, logger *slog.Logger) *RepoService {
	return &RepoService{repos: repos, files: files, logger: logger}
}

// List returns the user's repositories, newest first.
func (s *RepoService) List(ctx context.Context, user *model.User) ([]model.Repository, error) {
	return s.repos.RepositoriesForUser(ctx, user.ID)
}

// Create makes a new repository for the user. The name must be unique per
// owner; the git URL is derived once at creation and never changes.
func (s *RepoService) Create(ctx context.Context, user *model.User, name, description string, isPrivate bool) (*model.Repository, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Repository name is required")
	}

	repo, err := s.repos.CreateRepository(ctx, user, name, description, isPrivate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository created",
		slog.Int64("repoID", repo.ID),
		slog.Int64("userID", user.ID),
		slog.String("name", repo.Name),
	)
	return repo, nil
}

// Get returns one repository owned by the user, or not-found.
func (s *RepoService) Get(ctx context.Context, user *model.User, repoID int64) (*model.Repository, error) {
	return s.repos.RepositoryForUser(ctx, repoID, user.ID)
}

// Update changes name, description, or visibility. Absent fields keep
// their current values; the registry rewrite always carries the full row.
// Renames are checked against the owner's other repositories; the stored
// git URL keeps the original name.
func (s *RepoService) Update(ctx context.Context, user *model.User, repoID int64, name, description *string, isPrivate *bool) (*model.Repository, error) {
	current, err := s.repos.RepositoryForUser(ctx, repoID, user.ID)
	if err != nil {
		return nil, err
	}

	newName := current.Name
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return nil, apperror.ValidationFailed("name", "Repository name is required")
		}
	}
	newDescription := current.Description
	if description != nil {
		newDescription = *description
	}
	newPrivate := current.IsPrivate
	if isPrivate != nil {
		newPrivate = *isPrivate
	}

	return s.repos.UpdateRepository(ctx, repoID, user.ID, newName, newDescription, newPrivate)
}

// Delete removes a repository and all of its file rows.
func (s *RepoService) Delete(ctx context.Context, user *model.User, repoID int64) error {
	if err := s.repos.DeleteRepository(ctx, repoID, user.ID); err != nil {
		return err
	}
	s.logger.Info("repository deleted",
		slog.Int64("repoID", repoID),
		slog.Int64("userID", user.ID),
	)
	return nil
}

// ListFiles returns the file rows of a repository the user owns.
func (s *RepoService) ListFiles(ctx context.Context, user *model.User, repoID int64) ([]model.RepositoryFile, error) {
	if _, err := s.repos.RepositoryForUser(ctx, repoID, user.ID); err != nil {
		return nil, err
	}
	return s.files.FilesForRepository(ctx, repoID)
}

// CreateFile adds a file row to a repository the user owns. An empty path
// defaults to the repository root; the (path, name) pair must be unique
// within the repository. Paths are repository-relative: ".." segments and
// separators in the name are rejected so a row can never address anything
// outside the working tree it is later materialized into.
func (s *RepoService) CreateFile(ctx context.Context, user *model.User, repoID int64, filePath, fileName, content, fileType string) (*model.RepositoryFile, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, apperror.ValidationFailed("fileName", "File name is required")
	}
	if strings.ContainsAny(fileName, `/\`) {
		return nil, apperror.ValidationFailed("fileName", "File name must not contain path separators")
	}
	if filePath == "" {
		filePath = "/"
	}
	for _, seg := range strings.FieldsFunc(filePath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return nil, apperror.ValidationFailed("filePath", "File path must stay inside the repository")
		}
	}

	if _, err := s.repos.RepositoryForUser(ctx, repoID, user.ID); err != nil {
		return nil, err
	}

	file, err := s.files.CreateFile(ctx, repoID, filePath, fileName, content, fileType)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file created",
		slog.Int64("repoID", repoID),
		slog.String("path", filePath),
		slog.String("name", fileName),
	)
	return file, nil
}

// DeleteFile removes one file row from a repository the user owns.
func (s *RepoService) DeleteFile(ctx context.Context, user *model.User, repoID, fileID int64) error {
	if _, err := s.repos.RepositoryForUser(ctx, repoID, user.ID); err != nil {
		return err
	}
	return s.files.DeleteFile(ctx, repoID, fileID)
}

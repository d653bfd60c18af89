package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/gitmap/internal/apperror"
	"github.com/sakif/gitmap/internal/model"
	"github.com/sakif/gitmap/internal/store"
)

const filesTable = "repository_files"

// CreateFile inserts a file row. The (repository_id, file_path, file_name)
// triple must be unique; that is enforced right here with a probe, not by a
// storage constraint. FileSize is derived from the content length.
//
// Ownership of repositoryID must have been established by the caller via
// RepositoryForUser — file operations are always reached through a resolved
// repository.
func (r *Registry) CreateFile(ctx context.Context, repositoryID int64, filePath, fileName, content, fileType string) (*model.RepositoryFile, error) {
	existing, err := r.store.Get(ctx, store.Query{
		Table: filesTable,
		Where: []store.Cond{
			store.Eq("repository_id", repositoryID),
			store.Eq("file_path", filePath),
			store.Eq("file_name", fileName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: probing file: %w", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("File already exists")
	}

	now := time.Now().UTC()
	res, err := r.store.Run(ctx, store.Insert(filesTable, store.Row{
		"repository_id": repositoryID,
		"file_path":     filePath,
		"file_name":     fileName,
		"file_content":  content,
		"file_size":     int64(len(content)),
		"file_type":     fileType,
		"created_at":    now,
		"updated_at":    now,
	}))
	if err != nil {
		return nil, fmt.Errorf("registry: inserting file %s/%s: %w", filePath, fileName, err)
	}

	row, err := r.store.Get(ctx, store.Query{
		Table: filesTable,
		Where: []store.Cond{store.Eq("id", res.LastID)},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: reading back file %d: %w", res.LastID, err)
	}
	if row == nil {
		return nil, apperror.NotFound("file", res.LastID)
	}
	return rowToFile(row), nil
}

// FilesForRepository lists all file rows, ordered by path then name.
func (r *Registry) FilesForRepository(ctx context.Context, repositoryID int64) ([]model.RepositoryFile, error) {
	rows, err := r.store.All(ctx, store.Query{
		Table:   filesTable,
		Where:   []store.Cond{store.Eq("repository_id", repositoryID)},
		OrderBy: []string{"file_path", "file_name"},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: listing files of repository %d: %w", repositoryID, err)
	}

	files := make([]model.RepositoryFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, *rowToFile(row))
	}
	return files, nil
}

// DeleteFile removes one file row, scoped to the repository so a file id
// from another repository cannot be deleted through the wrong URL.
func (r *Registry) DeleteFile(ctx context.Context, repositoryID, fileID int64) error {
	res, err := r.store.Run(ctx, store.Delete(filesTable,
		store.Eq("id", fileID),
		store.Eq("repository_id", repositoryID),
	))
	if err != nil {
		return fmt.Errorf("registry: deleting file %d: %w", fileID, err)
	}
	if res.Affected == 0 {
		return apperror.NotFound("file", fileID)
	}
	return nil
}

func rowToFile(row store.Row) *model.RepositoryFile {
	return &model.RepositoryFile{
		ID:           row.Int64("id"),
		RepositoryID: row.Int64("repository_id"),
		FilePath:     row.String("file_path"),
		FileName:     row.String("file_name"),
		FileContent:  row.String("file_content"),
		FileSize:     row.Int64("file_size"),
		FileType:     row.String("file_type"),
		CreatedAt:    row.Time("created_at"),
		UpdatedAt:    row.Time("updated_at"),
	}
}

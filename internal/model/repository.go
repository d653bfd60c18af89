package model

import "time"

// Repository is Git repository metadata owned by exactly one user.
//
// Name is unique per owner; GitURL is globally unique and derived from
// {username}/{name} at creation time. The repository's file contents live in
// RepositoryFile rows — there is no persisted Git object database. GitData is
// an opaque column reserved for serialized Git state and is unused by the
// snapshot engine.
type Repository struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	GitURL      string    `json:"git_url"`
	GitData     string    `json:"git_data,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RepositoryFile is one file in a repository. The triple
// (repository_id, file_path, file_name) identifies a file uniquely; the
// uniqueness is enforced by the registry, not by a storage constraint.
//
// FileSize is derived from the content length at write time (0 when content
// is absent). FilePath is the directory portion ("/" for the root), FileName
// the base name.
type RepositoryFile struct {
	ID           int64     `json:"id"`
	RepositoryID int64     `json:"repository_id"`
	FilePath     string    `json:"file_path"`
	FileName     string    `json:"file_name"`
	FileContent  string    `json:"file_content"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

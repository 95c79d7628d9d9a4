package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrFolderNotFound = errors.New("folder does not exist")

type CreateFileParams struct {
	ID           string
	OwnerID      int64
	FolderID     *string
	Name         string
	RelativePath string
	SizeBytes    int64
	MimeType     *string
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (*models.File, error) {
	query := `
		INSERT INTO files (id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
	`
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.FolderID,
		arg.Name,
		arg.RelativePath,
		arg.SizeBytes,
		arg.MimeType,
		now,
		now,
	)

	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.FolderID,
		&file.Name,
		&file.RelativePath,
		&file.SizeBytes,
		&file.MimeType,
		&file.IsPublic,
		&file.CreatedAt,
		&file.ModifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePath
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}

	return &file, nil
}

func (q *Queries) GetFileByID(ctx context.Context, id string, ownerID int64) (*models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE id = $1 AND owner_id = $2
	`
	return q.getFileRow(ctx, query, id, ownerID)
}

// GetFileByIDAny pomija właściciela — używane przy pobieraniu plików publicznych
// i udostępnionych tokenem.
func (q *Queries) GetFileByIDAny(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE id = $1
	`
	return q.getFileRow(ctx, query, id)
}

func (q *Queries) GetFileByPath(ctx context.Context, ownerID int64, relativePath string) (*models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE owner_id = $1 AND relative_path = $2
	`
	return q.getFileRow(ctx, query, ownerID, relativePath)
}

func (q *Queries) getFileRow(ctx context.Context, query string, args ...interface{}) (*models.File, error) {
	var file models.File
	err := q.db.QueryRow(ctx, query, args...).Scan(
		&file.ID,
		&file.OwnerID,
		&file.FolderID,
		&file.Name,
		&file.RelativePath,
		&file.SizeBytes,
		&file.MimeType,
		&file.IsPublic,
		&file.CreatedAt,
		&file.ModifiedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &file, nil
}

func (q *Queries) GetFilesByFolder(ctx context.Context, ownerID int64, folderID *string) ([]models.File, error) {
	var query string
	var rows pgx.Rows
	var err error

	if folderID == nil {
		query = `SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
				 FROM files
				 WHERE owner_id = $1 AND folder_id IS NULL
				 ORDER BY name`
		rows, err = q.db.Query(ctx, query, ownerID)
	} else {
		query = `SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
				 FROM files
				 WHERE owner_id = $1 AND folder_id = $2
				 ORDER BY name`
		rows, err = q.db.Query(ctx, query, ownerID, *folderID)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

func (q *Queries) GetFilesByOwner(ctx context.Context, ownerID int64) ([]models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE owner_id = $1
		ORDER BY relative_path
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// ListPublicFilesExcluding zwraca publiczne pliki innych użytkowników
// (widok "udostępnione dla wszystkich").
func (q *Queries) ListPublicFilesExcluding(ctx context.Context, ownerID int64) ([]models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE is_public = TRUE AND owner_id <> $1
		ORDER BY modified_at DESC
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

func (q *Queries) RenameFileRow(ctx context.Context, id string, ownerID int64, newName string, newRelativePath string) (bool, error) {
	query := `
		UPDATE files
		SET name = $1, relative_path = $2, modified_at = $3
		WHERE id = $4 AND owner_id = $5
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newName, newRelativePath, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicatePath
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetFileFolder(ctx context.Context, id string, ownerID int64, newFolderID *string, newRelativePath string) (bool, error) {
	query := `
		UPDATE files
		SET folder_id = $1, relative_path = $2, modified_at = $3
		WHERE id = $4 AND owner_id = $5
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newFolderID, newRelativePath, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrFolderNotFound
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicatePath
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// RewriteFilePathPrefix — jak RewriteFolderPathPrefix, ale dla wierszy plików.
func (q *Queries) RewriteFilePathPrefix(ctx context.Context, ownerID int64, oldPrefix string, newPrefix string) (int64, error) {
	query := `
		UPDATE files
		SET relative_path = $3 || substring(relative_path FROM char_length($2) + 1),
			modified_at = $4
		WHERE owner_id = $1 AND left(relative_path, char_length($2) + 1) = $2 || '/'
	`
	res, err := q.db.Exec(ctx, query, ownerID, oldPrefix, newPrefix, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (q *Queries) DeleteFileRow(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `DELETE FROM files WHERE id = $1 AND owner_id = $2`
	res, err := q.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ToggleFilePublic(ctx context.Context, id string, ownerID int64) (*models.File, error) {
	query := `
		UPDATE files
		SET is_public = NOT is_public, modified_at = $1
		WHERE id = $2 AND owner_id = $3
		RETURNING id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
	`
	var file models.File
	err := q.db.QueryRow(ctx, query, time.Now(), id, ownerID).Scan(
		&file.ID,
		&file.OwnerID,
		&file.FolderID,
		&file.Name,
		&file.RelativePath,
		&file.SizeBytes,
		&file.MimeType,
		&file.IsPublic,
		&file.CreatedAt,
		&file.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &file, nil
}

func (q *Queries) SearchFiles(ctx context.Context, ownerID int64, search string) ([]models.File, error) {
	query := `
		SELECT id, owner_id, folder_id, name, relative_path, size_bytes, mime_type, is_public, created_at, modified_at
		FROM files
		WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%' ESCAPE '\'
		ORDER BY name
	`
	rows, err := q.db.Query(ctx, query, ownerID, escapeLike(search))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// escapeLike neutralizuje znaki specjalne LIKE w zapytaniu użytkownika.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanFiles(rows pgx.Rows) ([]models.File, error) {
	var files []models.File
	for rows.Next() {
		var file models.File
		err := rows.Scan(
			&file.ID,
			&file.OwnerID,
			&file.FolderID,
			&file.Name,
			&file.RelativePath,
			&file.SizeBytes,
			&file.MimeType,
			&file.IsPublic,
			&file.CreatedAt,
			&file.ModifiedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if files == nil {
		return []models.File{}, nil
	}

	return files, nil
}

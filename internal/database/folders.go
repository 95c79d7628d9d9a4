package database

import (
	"context"
	"errors"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicatePath = errors.New("an item already exists at this path")
var ErrParentNotFound = errors.New("parent folder does not exist")

type CreateFolderParams struct {
	ID           string
	OwnerID      int64
	ParentID     *string
	Name         string
	RelativePath string
}

func (q *Queries) CreateFolder(ctx context.Context, arg CreateFolderParams) (*models.Folder, error) {
	query := `
		INSERT INTO folders (id, owner_id, parent_id, name, relative_path, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
	`
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.RelativePath,
		now,
		now,
	)

	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.RelativePath,
		&folder.IsPublic,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicatePath
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrParentNotFound
		}
		return nil, err
	}

	return &folder, nil
}

func (q *Queries) GetFolderByID(ctx context.Context, id string, ownerID int64) (*models.Folder, error) {
	query := `
		SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
		FROM folders
		WHERE id = $1 AND owner_id = $2
	`
	var folder models.Folder

	err := q.db.QueryRow(ctx, query, id, ownerID).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.RelativePath,
		&folder.IsPublic,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &folder, nil
}

// GetFolderByIDAny pomija właściciela — używane przy dostępie przez token udostępnienia.
func (q *Queries) GetFolderByIDAny(ctx context.Context, id string) (*models.Folder, error) {
	query := `
		SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
		FROM folders
		WHERE id = $1
	`
	var folder models.Folder

	err := q.db.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.RelativePath,
		&folder.IsPublic,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &folder, nil
}

func (q *Queries) GetFolderByPath(ctx context.Context, ownerID int64, relativePath string) (*models.Folder, error) {
	query := `
		SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
		FROM folders
		WHERE owner_id = $1 AND relative_path = $2
	`
	var folder models.Folder

	err := q.db.QueryRow(ctx, query, ownerID, relativePath).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.RelativePath,
		&folder.IsPublic,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &folder, nil
}

func (q *Queries) GetChildFolders(ctx context.Context, ownerID int64, parentID *string) ([]models.Folder, error) {
	var query string
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query = `SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
				 FROM folders
				 WHERE owner_id = $1 AND parent_id IS NULL
				 ORDER BY name`
		rows, err = q.db.Query(ctx, query, ownerID)
	} else {
		query = `SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
				 FROM folders
				 WHERE owner_id = $1 AND parent_id = $2
				 ORDER BY name`
		rows, err = q.db.Query(ctx, query, ownerID, *parentID)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFolders(rows)
}

func (q *Queries) GetFoldersByOwner(ctx context.Context, ownerID int64) ([]models.Folder, error) {
	query := `
		SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
		FROM folders
		WHERE owner_id = $1
		ORDER BY relative_path
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFolders(rows)
}

func (q *Queries) RenameFolderRow(ctx context.Context, id string, ownerID int64, newName string, newRelativePath string) (bool, error) {
	query := `
		UPDATE folders
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

func (q *Queries) SetFolderParent(ctx context.Context, id string, ownerID int64, newParentID *string, newRelativePath string) (bool, error) {
	query := `
		UPDATE folders
		SET parent_id = $1, relative_path = $2, modified_at = $3
		WHERE id = $4 AND owner_id = $5
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newParentID, newRelativePath, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrParentNotFound
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicatePath
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// RewriteFolderPathPrefix przepisuje relative_path wszystkich POTOMKÓW
// (sam folder aktualizowany jest osobno). Porównanie przez left() zamiast
// LIKE, żeby znaki specjalne w nazwach folderów niczego nie psuły.
func (q *Queries) RewriteFolderPathPrefix(ctx context.Context, ownerID int64, oldPrefix string, newPrefix string) (int64, error) {
	query := `
		UPDATE folders
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

func (q *Queries) DeleteFolderRow(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `DELETE FROM folders WHERE id = $1 AND owner_id = $2`
	res, err := q.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ToggleFolderPublic(ctx context.Context, id string, ownerID int64) (*models.Folder, error) {
	query := `
		UPDATE folders
		SET is_public = NOT is_public, modified_at = $1
		WHERE id = $2 AND owner_id = $3
		RETURNING id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
	`
	var folder models.Folder
	err := q.db.QueryRow(ctx, query, time.Now(), id, ownerID).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.RelativePath,
		&folder.IsPublic,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &folder, nil
}

func (q *Queries) SearchFolders(ctx context.Context, ownerID int64, search string) ([]models.Folder, error) {
	query := `
		SELECT id, owner_id, parent_id, name, relative_path, is_public, created_at, modified_at
		FROM folders
		WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%' ESCAPE '\'
		ORDER BY name
	`
	rows, err := q.db.Query(ctx, query, ownerID, escapeLike(search))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFolders(rows)
}

// IsFolderDescendant sprawdza, czy candidateID leży w poddrzewie folderID
// (albo jest nim samym). Używane przy przenoszeniu do wykrywania cykli.
func (q *Queries) IsFolderDescendant(ctx context.Context, folderID string, candidateID string) (bool, error) {
	if folderID == candidateID {
		return true, nil
	}

	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM folders WHERE id = $1

			UNION ALL

			SELECT f.id
			FROM folders f
			JOIN subtree s ON f.parent_id = s.id
		)
		SELECT EXISTS (
			SELECT 1
			FROM subtree
			WHERE id = $2
		);
	`
	var isDescendant bool
	err := q.db.QueryRow(ctx, query, folderID, candidateID).Scan(&isDescendant)
	return isDescendant, err
}

func scanFolders(rows pgx.Rows) ([]models.Folder, error) {
	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.OwnerID,
			&folder.ParentID,
			&folder.Name,
			&folder.RelativePath,
			&folder.IsPublic,
			&folder.CreatedAt,
			&folder.ModifiedAt,
		)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if folders == nil {
		return []models.Folder{}, nil
	}

	return folders, nil
}

package drive

import (
	"context"
	"errors"
	"fmt"
	"log"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"
	"chmura-plikow/internal/storage"

	"github.com/google/uuid"
)

// CreateFolder wstawia najpierw wiersz, a dopiero potem tworzy katalog:
// wiersz jest źródłem prawdy o istnieniu, więc przy niepowodzeniu mkdir
// wycofujemy wiersz, a nie odwrotnie. Samo mkdir ma semantykę `mkdir -p` —
// istniejący katalog nie jest błędem.
func (c *Coordinator) CreateFolder(ctx context.Context, ownerID int64, name string, parentID *string) (*models.Folder, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	var parentPath string
	if parentID != nil {
		parent, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *parentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.RelativePath
	}

	relativePath := joinPath(parentPath, name)

	if occupied, err := c.pathOccupied(ctx, ownerID, relativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, relativePath)
	}

	folder, err := c.store.CreateFolder(ctx, database.CreateFolderParams{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		ParentID:     parentID,
		Name:         name,
		RelativePath: relativePath,
	})
	if err != nil {
		return nil, translateMetadataErr(err)
	}

	if err := c.blobs.EnsureDir(ownerID, relativePath); err != nil {
		if _, delErr := c.store.DeleteFolderRow(ctx, folder.ID, ownerID); delErr != nil {
			log.Printf("WARN: Failed to roll back folder row %s after mkdir failure: %v", folder.ID, delErr)
		}
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIO, relativePath, err)
	}

	return folder, nil
}

// RenameFolder wykonuje jeden fizyczny rename (przenosi całe poddrzewo na
// dysku), a potem w jednej transakcji przepisuje relative_path folderu oraz
// WSZYSTKICH potomków — folderów i plików — podmieniając stary prefiks na
// nowy. Kaskada jest czysto napisowa, bez dodatkowego I/O.
func (c *Coordinator) RenameFolder(ctx context.Context, ownerID int64, folderID string, newName string) (*models.Folder, error) {
	if err := ValidateName(newName); err != nil {
		return nil, err
	}

	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	folder, err := c.folderForOwner(ctx, c.store.Queries, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if newName == folder.Name {
		return folder, nil
	}

	oldRelativePath := folder.RelativePath
	newRelativePath := joinPath(parentDir(oldRelativePath), newName)

	// zajętość celu sprawdzamy PRZED fizycznym rename — os.Rename potrafi
	// nadpisać istniejący pusty katalog i rollback nic by już nie przywrócił
	if occupied, err := c.pathOccupied(ctx, ownerID, newRelativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, newRelativePath)
	}

	if err := c.blobs.Rename(ownerID, oldRelativePath, newRelativePath); err != nil {
		return nil, fmt.Errorf("%w: rename %s -> %s: %v", ErrIO, oldRelativePath, newRelativePath, err)
	}

	txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
		updated, err := q.RenameFolderRow(ctx, folderID, ownerID, newName, newRelativePath)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
		}
		if _, err := q.RewriteFolderPathPrefix(ctx, ownerID, oldRelativePath, newRelativePath); err != nil {
			return err
		}
		_, err = q.RewriteFilePathPrefix(ctx, ownerID, oldRelativePath, newRelativePath)
		return err
	})

	if txErr != nil {
		if rbErr := c.blobs.Rename(ownerID, newRelativePath, oldRelativePath); rbErr != nil {
			log.Printf("WARN: Failed to roll back physical rename of %s: %v", newRelativePath, rbErr)
		}
		return nil, translateMetadataErr(txErr)
	}

	folder.Name = newName
	folder.RelativePath = newRelativePath
	return folder, nil
}

// MoveFolder przepina folder pod nowego rodzica (nil = katalog główny).
// Przeniesienie folderu do własnego poddrzewa jest jawnie odrzucane —
// warstwa relacyjna sama tego nie wymusza.
func (c *Coordinator) MoveFolder(ctx context.Context, ownerID int64, folderID string, newParentID *string) (*models.Folder, error) {
	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	folder, err := c.folderForOwner(ctx, c.store.Queries, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	var newParentPath string
	if newParentID != nil {
		parent, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *newParentID)
		if err != nil {
			return nil, err
		}

		inSubtree, err := c.store.IsFolderDescendant(ctx, folderID, *newParentID)
		if err != nil {
			return nil, err
		}
		if inSubtree {
			return nil, fmt.Errorf("%w: cannot move a folder into its own subtree", ErrConflict)
		}

		newParentPath = parent.RelativePath
	}

	oldRelativePath := folder.RelativePath
	newRelativePath := joinPath(newParentPath, folder.Name)
	if newRelativePath == oldRelativePath {
		return folder, nil
	}

	if occupied, err := c.pathOccupied(ctx, ownerID, newRelativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, newRelativePath)
	}

	if err := c.blobs.Rename(ownerID, oldRelativePath, newRelativePath); err != nil {
		return nil, fmt.Errorf("%w: move %s -> %s: %v", ErrIO, oldRelativePath, newRelativePath, err)
	}

	txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
		updated, err := q.SetFolderParent(ctx, folderID, ownerID, newParentID, newRelativePath)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
		}
		if _, err := q.RewriteFolderPathPrefix(ctx, ownerID, oldRelativePath, newRelativePath); err != nil {
			return err
		}
		_, err = q.RewriteFilePathPrefix(ctx, ownerID, oldRelativePath, newRelativePath)
		return err
	})

	if txErr != nil {
		if rbErr := c.blobs.Rename(ownerID, newRelativePath, oldRelativePath); rbErr != nil {
			log.Printf("WARN: Failed to roll back physical move of %s: %v", newRelativePath, rbErr)
		}
		return nil, translateMetadataErr(txErr)
	}

	folder.ParentID = newParentID
	folder.RelativePath = newRelativePath
	return folder, nil
}

func (c *Coordinator) ToggleFolderVisibility(ctx context.Context, ownerID int64, folderID string) (*models.Folder, error) {
	if _, err := c.folderForOwner(ctx, c.store.Queries, ownerID, folderID); err != nil {
		return nil, err
	}

	folder, err := c.store.ToggleFolderPublic(ctx, folderID, ownerID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
	}
	return folder, nil
}

// DeleteFolder usuwa poddrzewo w głąb: najpierw podfoldery rekurencyjnie,
// potem pliki bieżącego folderu, na końcu katalog i wiersz samego folderu.
// Niepowodzenie w środku przerywa operację i zostawia częściowo usunięte
// poddrzewo — zgłaszane jako PartialDeleteError, nigdy nie przemilczane.
func (c *Coordinator) DeleteFolder(ctx context.Context, ownerID int64, folderID string) error {
	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	folder, err := c.folderForOwner(ctx, c.store.Queries, ownerID, folderID)
	if err != nil {
		return err
	}

	if err := c.deleteFolderRecursive(ctx, ownerID, folder); err != nil {
		var partial *PartialDeleteError
		if errors.As(err, &partial) {
			return err
		}
		return &PartialDeleteError{FolderID: folderID, FailedPath: folder.RelativePath, Cause: err}
	}

	return nil
}

func (c *Coordinator) deleteFolderRecursive(ctx context.Context, ownerID int64, folder *models.Folder) error {
	children, err := c.store.GetChildFolders(ctx, ownerID, &folder.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := c.deleteFolderRecursive(ctx, ownerID, &children[i]); err != nil {
			return err
		}
	}

	files, err := c.store.GetFilesByFolder(ctx, ownerID, &folder.ID)
	if err != nil {
		return err
	}
	for i := range files {
		file := &files[i]
		if err := c.blobs.Remove(ownerID, file.RelativePath); err != nil && !errors.Is(err, storage.ErrNotExist) {
			return &PartialDeleteError{FolderID: folder.ID, FailedPath: file.RelativePath, Cause: err}
		}

		txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
			if _, err := q.DeleteFileRow(ctx, file.ID, ownerID); err != nil {
				return err
			}
			if err := q.DeleteShareTokensForItem(ctx, models.ShareItemFile, file.ID); err != nil {
				return err
			}
			return q.UpdateUserStorage(ctx, ownerID, -file.SizeBytes)
		})
		if txErr != nil {
			return &PartialDeleteError{FolderID: folder.ID, FailedPath: file.RelativePath, Cause: txErr}
		}
	}

	if err := c.blobs.RemoveDir(ownerID, folder.RelativePath); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return &PartialDeleteError{FolderID: folder.ID, FailedPath: folder.RelativePath, Cause: err}
	}

	txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
		if _, err := q.DeleteFolderRow(ctx, folder.ID, ownerID); err != nil {
			return err
		}
		return q.DeleteShareTokensForItem(ctx, models.ShareItemFolder, folder.ID)
	})
	if txErr != nil {
		return &PartialDeleteError{FolderID: folder.ID, FailedPath: folder.RelativePath, Cause: txErr}
	}

	return nil
}

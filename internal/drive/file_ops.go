package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"
	"chmura-plikow/internal/storage"

	"github.com/google/uuid"
)

// CreateFile zapisuje bajty przed wstawieniem wiersza, żeby żaden wiersz nie
// wskazywał na nieistniejący obiekt. Jeśli wstawienie wiersza się nie
// powiedzie, osierocone bajty są usuwane przed zwróceniem błędu.
func (c *Coordinator) CreateFile(ctx context.Context, ownerID int64, name string, folderID *string, content io.Reader, mimeType *string) (*models.File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	var folderPath string
	if folderID != nil {
		folder, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *folderID)
		if err != nil {
			return nil, err
		}
		// ścieżka liczona z łańcucha rodziców, nie z cache — spójność
		// cache relative_path weryfikują testy
		folderPath, err = BuildFolderPath(ctx, c.store.Queries, folder)
		if err != nil {
			return nil, err
		}
	}

	relativePath := joinPath(folderPath, name)

	if occupied, err := c.pathOccupied(ctx, ownerID, relativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, relativePath)
	}

	written, err := c.blobs.Write(ownerID, relativePath, content)
	if err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrIO, relativePath, err)
	}

	var file *models.File
	txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
		var err error
		file, err = q.CreateFile(ctx, database.CreateFileParams{
			ID:           uuid.New().String(),
			OwnerID:      ownerID,
			FolderID:     folderID,
			Name:         name,
			RelativePath: relativePath,
			SizeBytes:    written,
			MimeType:     mimeType,
		})
		if err != nil {
			return err
		}
		return q.UpdateUserStorage(ctx, ownerID, written)
	})

	if txErr != nil {
		// wiersz nie powstał — sprzątamy osierocone bajty
		if rmErr := c.blobs.Remove(ownerID, relativePath); rmErr != nil && !errors.Is(rmErr, storage.ErrNotExist) {
			log.Printf("WARN: Failed to clean up orphaned object %s for owner %d: %v", relativePath, ownerID, rmErr)
		}
		return nil, translateMetadataErr(txErr)
	}

	return file, nil
}

// RenameFile zmienia tylko ostatni segment ścieżki. Fizyczny rename idzie
// pierwszy; wiersz aktualizowany jest po nim, żeby metadane nigdy nie
// wskazywały ścieżki, której już nie ma.
func (c *Coordinator) RenameFile(ctx context.Context, ownerID int64, fileID string, newName string) (*models.File, error) {
	if err := ValidateName(newName); err != nil {
		return nil, err
	}

	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	if newName == file.Name {
		return file, nil
	}

	newRelativePath := joinPath(parentDir(file.RelativePath), newName)

	if occupied, err := c.pathOccupied(ctx, ownerID, newRelativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, newRelativePath)
	}

	if err := c.blobs.Rename(ownerID, file.RelativePath, newRelativePath); err != nil {
		return nil, fmt.Errorf("%w: rename %s -> %s: %v", ErrIO, file.RelativePath, newRelativePath, err)
	}

	updated, err := c.store.RenameFileRow(ctx, fileID, ownerID, newName, newRelativePath)
	if err != nil || !updated {
		// cofnij fizyczny rename, żeby wiersz dalej zgadzał się z dyskiem
		if rbErr := c.blobs.Rename(ownerID, newRelativePath, file.RelativePath); rbErr != nil {
			log.Printf("WARN: Failed to roll back physical rename of %s: %v", newRelativePath, rbErr)
		}
		if err != nil {
			return nil, translateMetadataErr(err)
		}
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}

	file.Name = newName
	file.RelativePath = newRelativePath
	return file, nil
}

// MoveFile przenosi plik do innego folderu (nil = katalog główny).
func (c *Coordinator) MoveFile(ctx context.Context, ownerID int64, fileID string, newFolderID *string) (*models.File, error) {
	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	var targetPath string
	if newFolderID != nil {
		target, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *newFolderID)
		if err != nil {
			return nil, err
		}
		targetPath = target.RelativePath
	}

	newRelativePath := joinPath(targetPath, file.Name)
	if newRelativePath == file.RelativePath {
		return file, nil
	}

	if occupied, err := c.pathOccupied(ctx, ownerID, newRelativePath); err != nil {
		return nil, err
	} else if occupied {
		return nil, fmt.Errorf("%w: %s", ErrConflict, newRelativePath)
	}

	if err := c.blobs.Rename(ownerID, file.RelativePath, newRelativePath); err != nil {
		return nil, fmt.Errorf("%w: move %s -> %s: %v", ErrIO, file.RelativePath, newRelativePath, err)
	}

	updated, err := c.store.SetFileFolder(ctx, fileID, ownerID, newFolderID, newRelativePath)
	if err != nil || !updated {
		if rbErr := c.blobs.Rename(ownerID, newRelativePath, file.RelativePath); rbErr != nil {
			log.Printf("WARN: Failed to roll back physical move of %s: %v", newRelativePath, rbErr)
		}
		if err != nil {
			return nil, translateMetadataErr(err)
		}
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}

	file.FolderID = newFolderID
	file.RelativePath = newRelativePath
	return file, nil
}

// CloneFile tworzy kopię obok oryginału pod nazwą "{base} (copy){ext}";
// przy kolizji próbuje "{base} (copy 1){ext}", "{base} (copy 2){ext}", ...
func (c *Coordinator) CloneFile(ctx context.Context, ownerID int64, fileID string) (*models.File, error) {
	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	base, ext := splitExt(file.Name)
	dir := parentDir(file.RelativePath)

	newName := fmt.Sprintf("%s (copy)%s", base, ext)
	newRelativePath := joinPath(dir, newName)

	for copyIndex := 1; ; copyIndex++ {
		occupied, err := c.pathOccupied(ctx, ownerID, newRelativePath)
		if err != nil {
			return nil, err
		}
		if !occupied {
			break
		}
		newName = fmt.Sprintf("%s (copy %d)%s", base, copyIndex, ext)
		newRelativePath = joinPath(dir, newName)
	}

	if err := c.blobs.Copy(ownerID, file.RelativePath, newRelativePath); err != nil {
		return nil, fmt.Errorf("%w: copy %s -> %s: %v", ErrIO, file.RelativePath, newRelativePath, err)
	}

	var clone *models.File
	txErr := c.store.ExecTx(ctx, func(q *database.Queries) error {
		var err error
		clone, err = q.CreateFile(ctx, database.CreateFileParams{
			ID:           uuid.New().String(),
			OwnerID:      ownerID,
			FolderID:     file.FolderID,
			Name:         newName,
			RelativePath: newRelativePath,
			SizeBytes:    file.SizeBytes,
			MimeType:     file.MimeType,
		})
		if err != nil {
			return err
		}
		return q.UpdateUserStorage(ctx, ownerID, file.SizeBytes)
	})

	if txErr != nil {
		if rmErr := c.blobs.Remove(ownerID, newRelativePath); rmErr != nil && !errors.Is(rmErr, storage.ErrNotExist) {
			log.Printf("WARN: Failed to clean up orphaned clone %s for owner %d: %v", newRelativePath, ownerID, rmErr)
		}
		return nil, translateMetadataErr(txErr)
	}

	return clone, nil
}

// ToggleFileVisibility przełącza flagę public/private; bez efektów na dysku.
func (c *Coordinator) ToggleFileVisibility(ctx context.Context, ownerID int64, fileID string) (*models.File, error) {
	if _, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID); err != nil {
		return nil, err
	}

	file, err := c.store.ToggleFilePublic(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	return file, nil
}

// RemoveFile usuwa obiekt fizyczny, potem wiersz. Usuwanie jest idempotentne
// po stronie fizycznej: brak obiektu traktujemy jak sukces, żeby wiersz dało
// się sprzątnąć nawet po ręcznym wyczyszczeniu dysku.
func (c *Coordinator) RemoveFile(ctx context.Context, ownerID int64, fileID string) error {
	lock := c.locks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := c.blobs.Remove(ownerID, file.RelativePath); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrIO, file.RelativePath, err)
	}

	return c.store.ExecTx(ctx, func(q *database.Queries) error {
		deleted, err := q.DeleteFileRow(ctx, fileID, ownerID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: file %s", ErrNotFound, fileID)
		}
		if err := q.DeleteShareTokensForItem(ctx, models.ShareItemFile, fileID); err != nil {
			return err
		}
		return q.UpdateUserStorage(ctx, ownerID, -file.SizeBytes)
	})
}

// translateMetadataErr tłumaczy błędy repozytorium na taksonomię koordynatora.
func translateMetadataErr(err error) error {
	switch {
	case errors.Is(err, database.ErrDuplicatePath):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, database.ErrParentNotFound), errors.Is(err, database.ErrFolderNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

package drive

import (
	"context"
	"fmt"
	"io"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"
	"chmura-plikow/internal/storage"
)

// Coordinator spina repozytorium metadanych z magazynem fizycznym tak, żeby
// drzewo folderów i plików nigdy nie rozjechało się z dyskiem: wiersz w bazie
// jest źródłem prawdy o istnieniu elementu, a relative_path to jedynie
// zdenormalizowany cache ścieżki wynikającej z łańcucha rodziców.
type Coordinator struct {
	store  *database.Store
	blobs  storage.Backend
	shares *ShareRegistry
	locks  *ownerLocks
}

func NewCoordinator(store *database.Store, blobs storage.Backend, shares *ShareRegistry) *Coordinator {
	return &Coordinator{
		store:  store,
		blobs:  blobs,
		shares: shares,
		locks:  newOwnerLocks(),
	}
}

// fileForOwner ładuje plik i egzekwuje własność: brak wiersza to ErrNotFound,
// cudzy wiersz to ErrUnauthorized.
func (c *Coordinator) fileForOwner(ctx context.Context, q *database.Queries, ownerID int64, fileID string) (*models.File, error) {
	file, err := q.GetFileByIDAny(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if file.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: file %s", ErrUnauthorized, fileID)
	}
	return file, nil
}

func (c *Coordinator) folderForOwner(ctx context.Context, q *database.Queries, ownerID int64, folderID string) (*models.Folder, error) {
	folder, err := q.GetFolderByIDAny(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
	}
	if folder.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: folder %s", ErrUnauthorized, folderID)
	}
	return folder, nil
}

// pathOccupied sprawdza obie tabele: unikalność ścieżki jest wymuszana w bazie
// per tabela, a plik i folder nie mogą dzielić ścieżki na dysku.
func (c *Coordinator) pathOccupied(ctx context.Context, ownerID int64, relativePath string) (bool, error) {
	file, err := c.store.GetFileByPath(ctx, ownerID, relativePath)
	if err != nil {
		return false, err
	}
	if file != nil {
		return true, nil
	}

	folder, err := c.store.GetFolderByPath(ctx, ownerID, relativePath)
	if err != nil {
		return false, err
	}
	return folder != nil, nil
}

type SearchResult struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
}

// Search wyszukuje po podciągu nazwy, bez łączenia wyników w jeden ranking.
func (c *Coordinator) Search(ctx context.Context, ownerID int64, query string) (*SearchResult, error) {
	files, err := c.store.SearchFiles(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}

	folders, err := c.store.SearchFolders(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}

	return &SearchResult{Files: files, Folders: folders}, nil
}

func (c *Coordinator) FoldersByOwner(ctx context.Context, ownerID int64) ([]models.Folder, error) {
	return c.store.GetFoldersByOwner(ctx, ownerID)
}

func (c *Coordinator) FilesByOwner(ctx context.Context, ownerID int64) ([]models.File, error) {
	return c.store.GetFilesByOwner(ctx, ownerID)
}

func (c *Coordinator) FolderByID(ctx context.Context, ownerID int64, folderID string) (*models.Folder, error) {
	return c.folderForOwner(ctx, c.store.Queries, ownerID, folderID)
}

func (c *Coordinator) ChildFolders(ctx context.Context, ownerID int64, parentID *string) ([]models.Folder, error) {
	if parentID != nil {
		if _, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *parentID); err != nil {
			return nil, err
		}
	}
	return c.store.GetChildFolders(ctx, ownerID, parentID)
}

func (c *Coordinator) FilesInFolder(ctx context.Context, ownerID int64, folderID *string) ([]models.File, error) {
	if folderID != nil {
		if _, err := c.folderForOwner(ctx, c.store.Queries, ownerID, *folderID); err != nil {
			return nil, err
		}
	}
	return c.store.GetFilesByFolder(ctx, ownerID, folderID)
}

// PublicFilesOfOthers to widok "udostępnione publicznie" — pliki z flagą
// is_public należące do innych użytkowników.
func (c *Coordinator) PublicFilesOfOthers(ctx context.Context, ownerID int64) ([]models.File, error) {
	return c.store.ListPublicFilesExcluding(ctx, ownerID)
}

// OpenFile zwraca metadane pliku i strumień jego zawartości.
func (c *Coordinator) OpenFile(ctx context.Context, ownerID int64, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return nil, nil, err
	}

	stream, err := c.blobs.Open(file.OwnerID, file.RelativePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrIO, file.RelativePath, err)
	}

	return file, stream, nil
}

func (c *Coordinator) ShareFile(ctx context.Context, ownerID int64, fileID string) (*models.ShareToken, error) {
	file, err := c.fileForOwner(ctx, c.store.Queries, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	return c.shares.Issue(ctx, models.ShareItemFile, file.ID)
}

func (c *Coordinator) ShareFolder(ctx context.Context, ownerID int64, folderID string) (*models.ShareToken, error) {
	folder, err := c.folderForOwner(ctx, c.store.Queries, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	return c.shares.Issue(ctx, models.ShareItemFolder, folder.ID)
}

// ResolveShare sprawdza sam token, bez dociągania elementu.
func (c *Coordinator) ResolveShare(ctx context.Context, tokenValue string) (*models.ShareToken, error) {
	return c.shares.Resolve(ctx, tokenValue)
}

// SharedFile rozwiązuje token i zwraca plik, na który wskazuje.
func (c *Coordinator) SharedFile(ctx context.Context, tokenValue string) (*models.File, error) {
	token, err := c.shares.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token.ItemType != models.ShareItemFile {
		return nil, fmt.Errorf("%w: token does not reference a file", ErrNotFound)
	}

	file, err := c.store.GetFileByIDAny(ctx, token.ItemID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		// element usunięty po wydaniu tokenu
		return nil, fmt.Errorf("%w: shared file %s", ErrNotFound, token.ItemID)
	}

	return file, nil
}

type SharedFolderContent struct {
	Folder     *models.Folder  `json:"folder"`
	Subfolders []models.Folder `json:"subfolders"`
	Files      []models.File   `json:"files"`
}

// SharedFolder rozwiązuje token folderu i zwraca folder razem z bezpośrednią
// zawartością.
func (c *Coordinator) SharedFolder(ctx context.Context, tokenValue string) (*SharedFolderContent, error) {
	token, err := c.shares.Resolve(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token.ItemType != models.ShareItemFolder {
		return nil, fmt.Errorf("%w: token does not reference a folder", ErrNotFound)
	}

	folder, err := c.store.GetFolderByIDAny(ctx, token.ItemID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("%w: shared folder %s", ErrNotFound, token.ItemID)
	}

	subfolders, err := c.store.GetChildFolders(ctx, folder.OwnerID, &folder.ID)
	if err != nil {
		return nil, err
	}

	files, err := c.store.GetFilesByFolder(ctx, folder.OwnerID, &folder.ID)
	if err != nil {
		return nil, err
	}

	return &SharedFolderContent{Folder: folder, Subfolders: subfolders, Files: files}, nil
}

// OpenSharedFile pozwala pobrać zawartość pliku bez uwierzytelnienia —
// token jest całym uprawnieniem.
func (c *Coordinator) OpenSharedFile(ctx context.Context, tokenValue string) (*models.File, io.ReadCloser, error) {
	file, err := c.SharedFile(ctx, tokenValue)
	if err != nil {
		return nil, nil, err
	}

	stream, err := c.blobs.Open(file.OwnerID, file.RelativePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrIO, file.RelativePath, err)
	}

	return file, stream, nil
}

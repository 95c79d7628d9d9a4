package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"

	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza do tworzenia użytkownika na potrzeby testów koordynatora
func createDriveUser(t *testing.T, username string) int64 {
	user, err := testStore.CreateUser(context.Background(), username, "hash", nil)
	require.NoError(t, err)
	return user.ID
}

// physicalPath zwraca absolutną ścieżkę obiektu w testowym magazynie
func physicalPath(ownerID int64, relativePath string) string {
	return filepath.Join(testStorageDir, strconv.FormatInt(ownerID, 10), filepath.FromSlash(relativePath))
}

func requireObjectExists(t *testing.T, ownerID int64, relativePath string) {
	_, err := os.Stat(physicalPath(ownerID, relativePath))
	require.NoError(t, err, "expected physical object at %s", relativePath)
}

func requireObjectMissing(t *testing.T, ownerID int64, relativePath string) {
	_, err := os.Stat(physicalPath(ownerID, relativePath))
	require.True(t, os.IsNotExist(err), "expected no physical object at %s", relativePath)
}

func uploadTestFile(t *testing.T, ownerID int64, name string, folderID *string, content string) *models.File {
	file, err := testCoordinator.CreateFile(context.Background(), ownerID, name, folderID, strings.NewReader(content), nil)
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func TestCreateFolderAndUploadFile(t *testing.T) {
	ownerID := createDriveUser(t, "drive_create")
	ctx := context.Background()

	folder, err := testCoordinator.CreateFolder(ctx, ownerID, "Dokumenty", nil)
	require.NoError(t, err)
	require.Equal(t, "Dokumenty", folder.RelativePath)
	requireObjectExists(t, ownerID, "Dokumenty")

	file := uploadTestFile(t, ownerID, "raport.pdf", &folder.ID, "zawartość raportu")
	require.Equal(t, "Dokumenty/raport.pdf", file.RelativePath)
	require.Equal(t, int64(len("zawartość raportu")), file.SizeBytes)
	requireObjectExists(t, ownerID, "Dokumenty/raport.pdf")

	// Pobranie zwraca dokładnie to, co zostało zapisane
	meta, stream, err := testCoordinator.OpenFile(ctx, ownerID, file.ID)
	require.NoError(t, err)
	defer stream.Close()
	require.Equal(t, file.ID, meta.ID)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "zawartość raportu", string(data))

	// Zajęte miejsce zostało doliczone
	user, err := testStore.GetUserByID(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, file.SizeBytes, user.StorageUsedBytes)
}

func TestCreateFileUnderMissingFolderLeavesNoTrace(t *testing.T) {
	ownerID := createDriveUser(t, "drive_no_trace")
	ctx := context.Background()

	missingID := "folder-ktorego-nie-ma"
	_, err := testCoordinator.CreateFile(ctx, ownerID, "sierota.txt", &missingID, strings.NewReader("x"), nil)
	require.ErrorIs(t, err, ErrNotFound)

	// Ani wiersza, ani obiektu
	found, err := testStore.GetFileByPath(ctx, ownerID, "sierota.txt")
	require.NoError(t, err)
	require.Nil(t, found)
	requireObjectMissing(t, ownerID, "sierota.txt")
}

func TestCreateConflicts(t *testing.T) {
	ownerID := createDriveUser(t, "drive_conflicts")
	ctx := context.Background()

	_, err := testCoordinator.CreateFolder(ctx, ownerID, "Powtórka", nil)
	require.NoError(t, err)
	_, err = testCoordinator.CreateFolder(ctx, ownerID, "Powtórka", nil)
	require.ErrorIs(t, err, ErrConflict)

	uploadTestFile(t, ownerID, "plik.txt", nil, "a")
	_, err = testCoordinator.CreateFile(ctx, ownerID, "plik.txt", nil, strings.NewReader("b"), nil)
	require.ErrorIs(t, err, ErrConflict)

	_, err = testCoordinator.CreateFolder(ctx, ownerID, "zła/nazwa", nil)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestRenameFolderCascades(t *testing.T) {
	ownerID := createDriveUser(t, "drive_rename_cascade")
	ctx := context.Background()

	// Arrange: A/B z plikiem w środku i plik bezpośrednio w A
	folderA, err := testCoordinator.CreateFolder(ctx, ownerID, "A", nil)
	require.NoError(t, err)
	folderB, err := testCoordinator.CreateFolder(ctx, ownerID, "B", &folderA.ID)
	require.NoError(t, err)
	fileTop := uploadTestFile(t, ownerID, "góra.txt", &folderA.ID, "1")
	fileDeep := uploadTestFile(t, ownerID, "dół.txt", &folderB.ID, "2")

	// Act
	renamed, err := testCoordinator.RenameFolder(ctx, ownerID, folderA.ID, "A2")
	require.NoError(t, err)
	require.Equal(t, "A2", renamed.RelativePath)

	// Assert: ścieżki wszystkich potomków przepisane
	foundB, err := testStore.GetFolderByID(ctx, folderB.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "A2/B", foundB.RelativePath)

	foundTop, err := testStore.GetFileByID(ctx, fileTop.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "A2/góra.txt", foundTop.RelativePath)

	foundDeep, err := testStore.GetFileByID(ctx, fileDeep.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "A2/B/dół.txt", foundDeep.RelativePath)

	// Fizycznie: stara ścieżka zniknęła, nowa jest osiągalna
	requireObjectMissing(t, ownerID, "A")
	requireObjectExists(t, ownerID, "A2/B/dół.txt")

	// Zawartość dalej czytelna przez nowe metadane
	_, stream, err := testCoordinator.OpenFile(ctx, ownerID, fileDeep.ID)
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "2", string(data))
}

func TestMoveFolderRejectsOwnSubtree(t *testing.T) {
	ownerID := createDriveUser(t, "drive_cycle")
	ctx := context.Background()

	parent, err := testCoordinator.CreateFolder(ctx, ownerID, "Rodzic", nil)
	require.NoError(t, err)
	child, err := testCoordinator.CreateFolder(ctx, ownerID, "Dziecko", &parent.ID)
	require.NoError(t, err)

	// Folder do własnego poddrzewa
	_, err = testCoordinator.MoveFolder(ctx, ownerID, parent.ID, &child.ID)
	require.ErrorIs(t, err, ErrConflict)

	// Folder sam do siebie
	_, err = testCoordinator.MoveFolder(ctx, ownerID, parent.ID, &parent.ID)
	require.ErrorIs(t, err, ErrConflict)

	// Poprawne przeniesienie w drugą stronę działa
	sibling, err := testCoordinator.CreateFolder(ctx, ownerID, "Obok", nil)
	require.NoError(t, err)
	moved, err := testCoordinator.MoveFolder(ctx, ownerID, sibling.ID, &child.ID)
	require.NoError(t, err)
	require.Equal(t, "Rodzic/Dziecko/Obok", moved.RelativePath)
	requireObjectExists(t, ownerID, "Rodzic/Dziecko/Obok")
}

func TestMoveFile(t *testing.T) {
	ownerID := createDriveUser(t, "drive_move_file")
	ctx := context.Background()

	folder, err := testCoordinator.CreateFolder(ctx, ownerID, "Cel", nil)
	require.NoError(t, err)
	file := uploadTestFile(t, ownerID, "wedrowiec.txt", nil, "dane")

	moved, err := testCoordinator.MoveFile(ctx, ownerID, file.ID, &folder.ID)
	require.NoError(t, err)
	require.Equal(t, "Cel/wedrowiec.txt", moved.RelativePath)
	require.Equal(t, &folder.ID, moved.FolderID)
	requireObjectMissing(t, ownerID, "wedrowiec.txt")
	requireObjectExists(t, ownerID, "Cel/wedrowiec.txt")

	// Z powrotem do katalogu głównego
	moved, err = testCoordinator.MoveFile(ctx, ownerID, file.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "wedrowiec.txt", moved.RelativePath)
	require.Nil(t, moved.FolderID)
}

func TestCloneFileCollisionSequence(t *testing.T) {
	ownerID := createDriveUser(t, "drive_clone")
	ctx := context.Background()

	original := uploadTestFile(t, ownerID, "report.pdf", nil, "treść pdf")

	expected := []string{
		"report (copy).pdf",
		"report (copy 1).pdf",
		"report (copy 2).pdf",
	}

	for _, want := range expected {
		clone, err := testCoordinator.CloneFile(ctx, ownerID, original.ID)
		require.NoError(t, err)
		require.Equal(t, want, clone.Name)
		require.Equal(t, original.SizeBytes, clone.SizeBytes)
		requireObjectExists(t, ownerID, clone.RelativePath)

		// Kopia ma tę samą zawartość
		_, stream, err := testCoordinator.OpenFile(ctx, ownerID, clone.ID)
		require.NoError(t, err)
		data, err := io.ReadAll(stream)
		stream.Close()
		require.NoError(t, err)
		require.Equal(t, "treść pdf", string(data))
	}
}

func TestRemoveFileToleratesMissingObject(t *testing.T) {
	ownerID := createDriveUser(t, "drive_remove_idempotent")
	ctx := context.Background()

	file := uploadTestFile(t, ownerID, "znikajacy.txt", nil, "abc")

	// Ktoś ręcznie wyczyścił dysk — wiersz i tak ma dać się sprzątnąć
	require.NoError(t, os.Remove(physicalPath(ownerID, "znikajacy.txt")))

	err := testCoordinator.RemoveFile(ctx, ownerID, file.ID)
	require.NoError(t, err)

	found, err := testStore.GetFileByIDAny(ctx, file.ID)
	require.NoError(t, err)
	require.Nil(t, found)

	// Licznik miejsca wrócił do zera
	user, err := testStore.GetUserByID(ctx, ownerID)
	require.NoError(t, err)
	require.Zero(t, user.StorageUsedBytes)
}

func TestDeleteFolderRecursive(t *testing.T) {
	ownerID := createDriveUser(t, "drive_delete_recursive")
	ctx := context.Background()

	// Arrange: root/sub z plikami na obu poziomach i tokenem udostępnienia
	root, err := testCoordinator.CreateFolder(ctx, ownerID, "Kasowany", nil)
	require.NoError(t, err)
	sub, err := testCoordinator.CreateFolder(ctx, ownerID, "Pod", &root.ID)
	require.NoError(t, err)
	topFile := uploadTestFile(t, ownerID, "a.txt", &root.ID, "a")
	deepFile := uploadTestFile(t, ownerID, "b.txt", &sub.ID, "bb")

	token, err := testCoordinator.ShareFile(ctx, ownerID, deepFile.ID)
	require.NoError(t, err)

	// Act
	err = testCoordinator.DeleteFolder(ctx, ownerID, root.ID)
	require.NoError(t, err)

	// Assert: wiersze zniknęły
	for _, id := range []string{root.ID, sub.ID} {
		found, err := testStore.GetFolderByIDAny(ctx, id)
		require.NoError(t, err)
		require.Nil(t, found)
	}
	for _, id := range []string{topFile.ID, deepFile.ID} {
		found, err := testStore.GetFileByIDAny(ctx, id)
		require.NoError(t, err)
		require.Nil(t, found)
	}

	// Obiekty i katalogi zniknęły
	requireObjectMissing(t, ownerID, "Kasowany")

	// Token udostępnienia posprzątany
	foundToken, err := testStore.GetShareToken(ctx, token.Token)
	require.NoError(t, err)
	require.Nil(t, foundToken)

	// Licznik miejsca pomniejszony o oba pliki
	user, err := testStore.GetUserByID(ctx, ownerID)
	require.NoError(t, err)
	require.Zero(t, user.StorageUsedBytes)
}

func TestShareTokensRoundTrip(t *testing.T) {
	ownerID := createDriveUser(t, "drive_share")
	ctx := context.Background()

	folder, err := testCoordinator.CreateFolder(ctx, ownerID, "Wspólny", nil)
	require.NoError(t, err)
	file := uploadTestFile(t, ownerID, "wspolny.txt", &folder.ID, "sekret")

	fileToken, err := testCoordinator.ShareFile(ctx, ownerID, file.ID)
	require.NoError(t, err)
	folderToken, err := testCoordinator.ShareFolder(ctx, ownerID, folder.ID)
	require.NoError(t, err)

	// Każde wywołanie bije świeży token
	secondFileToken, err := testCoordinator.ShareFile(ctx, ownerID, file.ID)
	require.NoError(t, err)
	require.NotEqual(t, fileToken.Token, secondFileToken.Token)

	// Token pliku prowadzi do pliku i jego zawartości
	sharedFile, err := testCoordinator.SharedFile(ctx, fileToken.Token)
	require.NoError(t, err)
	require.Equal(t, file.ID, sharedFile.ID)

	_, stream, err := testCoordinator.OpenSharedFile(ctx, fileToken.Token)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	stream.Close()
	require.NoError(t, err)
	require.Equal(t, "sekret", string(data))

	// Token folderu zwraca folder z zawartością
	content, err := testCoordinator.SharedFolder(ctx, folderToken.Token)
	require.NoError(t, err)
	require.Equal(t, folder.ID, content.Folder.ID)
	require.Len(t, content.Files, 1)
	require.Equal(t, file.ID, content.Files[0].ID)

	// Token pliku nie otwiera folderu i odwrotnie
	_, err = testCoordinator.SharedFolder(ctx, fileToken.Token)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = testCoordinator.SharedFile(ctx, folderToken.Token)
	require.ErrorIs(t, err, ErrNotFound)

	// Nieznany token
	_, err = testCoordinator.ResolveShare(ctx, "nie-ma-takiego-tokenu")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredShareTokenRejected(t *testing.T) {
	ownerID := createDriveUser(t, "drive_share_expired")
	ctx := context.Background()

	file := uploadTestFile(t, ownerID, "przeterminowany.txt", nil, "x")

	expired := time.Now().Add(-1 * time.Minute)
	_, err := testStore.CreateShareToken(ctx, database.CreateShareTokenParams{
		Token:     "token_po_terminie",
		ItemType:  models.ShareItemFile,
		ItemID:    file.ID,
		ExpiresAt: &expired,
	})
	require.NoError(t, err)

	_, err = testCoordinator.ResolveShare(ctx, "token_po_terminie")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestShareTokenToDeletedItem(t *testing.T) {
	ownerID := createDriveUser(t, "drive_share_deleted")
	ctx := context.Background()

	file := uploadTestFile(t, ownerID, "ulotny.txt", nil, "x")
	token, err := testCoordinator.ShareFile(ctx, ownerID, file.ID)
	require.NoError(t, err)

	require.NoError(t, testCoordinator.RemoveFile(ctx, ownerID, file.ID))

	// Token został posprzątany razem z plikiem
	_, err = testCoordinator.SharedFile(ctx, token.Token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOwnershipEnforced(t *testing.T) {
	aliceID := createDriveUser(t, "drive_alice")
	bobID := createDriveUser(t, "drive_bob")
	ctx := context.Background()

	folder, err := testCoordinator.CreateFolder(ctx, aliceID, "Prywatne", nil)
	require.NoError(t, err)
	file := uploadTestFile(t, aliceID, "prywatny.txt", &folder.ID, "x")

	// Cudzy element: rozróżniamy "nie twoje" od "nie istnieje"
	_, err = testCoordinator.RenameFile(ctx, bobID, file.ID, "moj.txt")
	require.ErrorIs(t, err, ErrUnauthorized)
	err = testCoordinator.DeleteFolder(ctx, bobID, folder.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = testCoordinator.OpenFile(ctx, bobID, file.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = testCoordinator.RenameFile(ctx, bobID, "nie-ma-takiego", "x.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	ownerID := createDriveUser(t, "drive_search")
	ctx := context.Background()

	_, err := testCoordinator.CreateFolder(ctx, ownerID, "Faktury 2024", nil)
	require.NoError(t, err)
	uploadTestFile(t, ownerID, "faktura-01.pdf", nil, "x")

	result, err := testCoordinator.Search(ctx, ownerID, "faktur")
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Len(t, result.Folders, 1)

	// Brak trafień to puste listy, nie nil
	result, err = testCoordinator.Search(ctx, ownerID, fmt.Sprintf("brak-%d", time.Now().UnixNano()))
	require.NoError(t, err)
	require.NotNil(t, result.Files)
	require.NotNil(t, result.Folders)
	require.Empty(t, result.Files)
	require.Empty(t, result.Folders)
}

func TestRenameFileConflict(t *testing.T) {
	ownerID := createDriveUser(t, "drive_rename_conflict")
	ctx := context.Background()

	uploadTestFile(t, ownerID, "zajety.txt", nil, "a")
	file := uploadTestFile(t, ownerID, "wolny.txt", nil, "b")

	_, err := testCoordinator.RenameFile(ctx, ownerID, file.ID, "zajety.txt")
	require.ErrorIs(t, err, ErrConflict)

	// Oryginał nie został ruszony
	requireObjectExists(t, ownerID, "wolny.txt")
	found, err := testStore.GetFileByID(ctx, file.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "wolny.txt", found.RelativePath)
}

func TestRenameFolderConflict(t *testing.T) {
	ownerID := createDriveUser(t, "drive_rename_folder_conflict")
	ctx := context.Background()

	occupied, err := testCoordinator.CreateFolder(ctx, ownerID, "Zajety", nil)
	require.NoError(t, err)
	folder, err := testCoordinator.CreateFolder(ctx, ownerID, "Wolny", nil)
	require.NoError(t, err)
	uploadTestFile(t, ownerID, "w-srodku.txt", &occupied.ID, "dane")

	_, err = testCoordinator.RenameFolder(ctx, ownerID, folder.ID, "Zajety")
	require.ErrorIs(t, err, ErrConflict)

	// Oba katalogi stoją tam, gdzie stały, zawartość zajętego nietknięta
	requireObjectExists(t, ownerID, "Wolny")
	requireObjectExists(t, ownerID, "Zajety/w-srodku.txt")
	found, err := testStore.GetFolderByID(ctx, folder.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "Wolny", found.RelativePath)

	// Cel zajęty przez PLIK to też konflikt — ścieżka jest jedna przestrzeń nazw
	uploadTestFile(t, ownerID, "cel.txt", nil, "x")
	_, err = testCoordinator.RenameFolder(ctx, ownerID, folder.ID, "cel.txt")
	require.ErrorIs(t, err, ErrConflict)
}

func TestMoveFolderConflict(t *testing.T) {
	ownerID := createDriveUser(t, "drive_move_folder_conflict")
	ctx := context.Background()

	parent, err := testCoordinator.CreateFolder(ctx, ownerID, "Cel", nil)
	require.NoError(t, err)
	_, err = testCoordinator.CreateFolder(ctx, ownerID, "Kopia", &parent.ID)
	require.NoError(t, err)
	sibling, err := testCoordinator.CreateFolder(ctx, ownerID, "Kopia", nil)
	require.NoError(t, err)

	// W celu siedzi już folder o tej samej nazwie
	_, err = testCoordinator.MoveFolder(ctx, ownerID, sibling.ID, &parent.ID)
	require.ErrorIs(t, err, ErrConflict)

	requireObjectExists(t, ownerID, "Kopia")
	requireObjectExists(t, ownerID, "Cel/Kopia")
	found, err := testStore.GetFolderByID(ctx, sibling.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, "Kopia", found.RelativePath)
	require.Nil(t, found.ParentID)
}

func TestCreateRejectsCrossTypePathCollision(t *testing.T) {
	ownerID := createDriveUser(t, "drive_cross_type")
	ctx := context.Background()

	_, err := testCoordinator.CreateFolder(ctx, ownerID, "Mieszane", nil)
	require.NoError(t, err)
	uploadTestFile(t, ownerID, "notatka.txt", nil, "a")

	// Plik pod ścieżką istniejącego folderu
	_, err = testCoordinator.CreateFile(ctx, ownerID, "Mieszane", nil, strings.NewReader("b"), nil)
	require.ErrorIs(t, err, ErrConflict)

	// Folder pod ścieżką istniejącego pliku
	_, err = testCoordinator.CreateFolder(ctx, ownerID, "notatka.txt", nil)
	require.ErrorIs(t, err, ErrConflict)

	// Zmiana nazwy pliku na ścieżkę folderu też odpada
	file := uploadTestFile(t, ownerID, "inny.txt", nil, "c")
	_, err = testCoordinator.RenameFile(ctx, ownerID, file.ID, "Mieszane")
	require.ErrorIs(t, err, ErrConflict)

	// Folder dalej jest katalogiem, nie został nadpisany plikiem
	info, err := os.Stat(physicalPath(ownerID, "Mieszane"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

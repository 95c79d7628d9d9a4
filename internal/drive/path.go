package drive

import (
	"context"
	"fmt"
	"strings"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"
)

// maxFolderDepth ogranicza leniwe wspinanie się po łańcuchu rodziców.
// Przy poprawnych danych nigdy nie zostanie osiągnięte; chroni przed
// cyklem powstałym z uszkodzonych danych.
const maxFolderDepth = 64

// ValidateName odrzuca nazwy, które nie mogą być pojedynczym segmentem ścieżki.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name contains a path separator", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// BuildFolderPath wyznacza ścieżkę względną folderu, idąc po łańcuchu
// rodziców jeden poziom na raz. Nie zakłada, że cały łańcuch jest już
// załadowany — każdy rodzic jest dociągany osobnym zapytaniem.
func BuildFolderPath(ctx context.Context, q *database.Queries, folder *models.Folder) (string, error) {
	segments := []string{folder.Name}

	current := folder
	for depth := 0; current.ParentID != nil; depth++ {
		if depth >= maxFolderDepth {
			return "", fmt.Errorf("folder %s: ancestor chain exceeds %d levels, possible cycle", folder.ID, maxFolderDepth)
		}

		parent, err := q.GetFolderByID(ctx, *current.ParentID, folder.OwnerID)
		if err != nil {
			return "", err
		}
		if parent == nil {
			return "", fmt.Errorf("%w: parent folder %s", ErrNotFound, *current.ParentID)
		}

		segments = append([]string{parent.Name}, segments...)
		current = parent
	}

	return strings.Join(segments, "/"), nil
}

// joinPath skleja ścieżkę rodzica z nazwą segmentu; pusta ścieżka rodzica
// oznacza katalog główny właściciela.
func joinPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// parentDir zwraca ścieżkę rodzica, czyli wszystko przed ostatnim separatorem.
func parentDir(relativePath string) string {
	idx := strings.LastIndex(relativePath, "/")
	if idx < 0 {
		return ""
	}
	return relativePath[:idx]
}

// splitExt dzieli nazwę na bazę i najdłuższy sufiks zaczynający się od
// ostatniej kropki.
func splitExt(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotExist odróżnia brak obiektu od innych błędów I/O.
var ErrNotExist = errors.New("object does not exist in storage")

var ErrInvalidPath = errors.New("invalid relative path")

// Backend to warstwa fizyczna: wszystkie operacje działają na ścieżkach
// względnych wewnątrz katalogu właściciela (ownerID).
type Backend interface {
	EnsureDir(ownerID int64, relativePath string) error
	Write(ownerID int64, relativePath string, data io.Reader) (int64, error)
	Open(ownerID int64, relativePath string) (io.ReadCloser, error)
	Rename(ownerID int64, oldPath, newPath string) error
	Copy(ownerID int64, oldPath, newPath string) error
	Remove(ownerID int64, relativePath string) error
	RemoveDir(ownerID int64, relativePath string) error
}

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// resolve tłumaczy ścieżkę względną na absolutną wewnątrz katalogu
// właściciela. Ścieżki prowadzące poza ten katalog są odrzucane.
func (ls *LocalStorage) resolve(ownerID int64, relativePath string) (string, error) {
	if relativePath == "" || strings.HasPrefix(relativePath, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relativePath)
	}
	cleaned := filepath.Clean(filepath.FromSlash(relativePath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relativePath)
	}
	ownerRoot := filepath.Join(ls.basePath, strconv.FormatInt(ownerID, 10))
	return filepath.Join(ownerRoot, cleaned), nil
}

func (ls *LocalStorage) EnsureDir(ownerID int64, relativePath string) error {
	dirPath, err := ls.resolve(ownerID, relativePath)
	if err != nil {
		return err
	}
	return os.MkdirAll(dirPath, os.ModePerm)
}

func (ls *LocalStorage) Write(ownerID int64, relativePath string, data io.Reader) (int64, error) {
	filePath, err := ls.resolve(ownerID, relativePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return 0, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(file, data)
	if err != nil {
		// niedopisany plik nie może zostać na dysku
		file.Close()
		os.Remove(filePath)
		return 0, err
	}

	return written, file.Close()
}

func (ls *LocalStorage) Open(ownerID int64, relativePath string) (io.ReadCloser, error) {
	filePath, err := ls.resolve(ownerID, relativePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", relativePath, ErrNotExist)
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) Rename(ownerID int64, oldPath, newPath string) error {
	oldFull, err := ls.resolve(ownerID, oldPath)
	if err != nil {
		return err
	}
	newFull, err := ls.resolve(ownerID, newPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(newFull), os.ModePerm); err != nil {
		return err
	}

	if err := os.Rename(oldFull, newFull); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", oldPath, ErrNotExist)
		}
		return err
	}
	return nil
}

func (ls *LocalStorage) Copy(ownerID int64, oldPath, newPath string) error {
	src, err := ls.Open(ownerID, oldPath)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = ls.Write(ownerID, newPath, src)
	return err
}

func (ls *LocalStorage) Remove(ownerID int64, relativePath string) error {
	filePath, err := ls.resolve(ownerID, relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", relativePath, ErrNotExist)
		}
		return err
	}
	return nil
}

// RemoveDir usuwa katalog. Katalog musi być pusty — pliki i podkatalogi
// usuwa wcześniej koordynator, żeby metadane nie rozjechały się z dyskiem.
func (ls *LocalStorage) RemoveDir(ownerID int64, relativePath string) error {
	dirPath, err := ls.resolve(ownerID, relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(dirPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", relativePath, ErrNotExist)
		}
		return err
	}
	return nil
}

package drive

import (
	"errors"
	"fmt"
)

// Taksonomia błędów koordynatora. Warstwa API tłumaczy je na kody HTTP,
// koordynator nigdy nie zwraca surowych błędów pgx ani os.
var (
	ErrNotFound      = errors.New("item not found")
	ErrUnauthorized  = errors.New("caller is not the owner of this item")
	ErrInvalidName   = errors.New("invalid item name")
	ErrConflict      = errors.New("target path is already occupied")
	ErrIO            = errors.New("physical storage failure")
	ErrPartialDelete = errors.New("recursive delete aborted partway")
)

// PartialDeleteError niesie informację, na którym elemencie poddrzewa
// przerwało się usuwanie. errors.Is(err, ErrPartialDelete) pozostaje prawdziwe,
// a errors.Is/As widzi też pierwotną przyczynę.
type PartialDeleteError struct {
	FolderID   string
	FailedPath string
	Cause      error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete of folder %s aborted at %q: %v", e.FolderID, e.FailedPath, e.Cause)
}

func (e *PartialDeleteError) Unwrap() []error {
	return []error{ErrPartialDelete, e.Cause}
}

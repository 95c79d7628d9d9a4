package drive

import (
	"fmt"
	"testing"

	"chmura-plikow/internal/storage"

	"github.com/stretchr/testify/require"
)

func TestPartialDeleteErrorExposesCause(t *testing.T) {
	cause := fmt.Errorf("remove %s: %w", "A/b.txt", storage.ErrNotExist)
	err := &PartialDeleteError{FolderID: "f1", FailedPath: "A/b.txt", Cause: cause}

	// Wywołujący widzi zarówno klasę błędu, jak i pierwotną przyczynę
	require.ErrorIs(t, err, ErrPartialDelete)
	require.ErrorIs(t, err, storage.ErrNotExist)
}

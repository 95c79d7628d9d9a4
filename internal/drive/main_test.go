package drive

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testCoordinator *Coordinator
	testStore       *database.Store
	testStorageDir  string
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:14-alpine",
		postgres.WithDatabase("test_drive_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("failed to terminate postgres container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("failed to connect to test database: %s", err)
	}

	schema, err := os.ReadFile("../../db/init.sql")
	if err != nil {
		log.Fatalf("failed to read schema file: %s", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %s", err)
	}

	testStorageDir, err = os.MkdirTemp("", "drive-storage-test")
	if err != nil {
		log.Fatalf("failed to create temp storage dir: %s", err)
	}
	defer os.RemoveAll(testStorageDir)

	localStorage, err := storage.NewLocalStorage(testStorageDir)
	if err != nil {
		log.Fatalf("failed to create local storage: %s", err)
	}

	testStore = database.NewStore(pool)

	shareRegistry, err := NewShareRegistry(testStore, 1*time.Hour)
	if err != nil {
		log.Fatalf("failed to create share registry: %s", err)
	}

	testCoordinator = NewCoordinator(testStore, localStorage, shareRegistry)

	os.Exit(m.Run())
}

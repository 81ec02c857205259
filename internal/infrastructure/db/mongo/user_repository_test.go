package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/deathkiller/api/internal/core/domain"
)

func setupRepo(t *testing.T) *UserRepository {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping MongoDB integration tests")
	}
	if testing.Short() {
		t.Skip("short mode, skipping MongoDB integration tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: could not start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	client, repo, err := Open(ctx, Config{URI: fmt.Sprintf("mongodb://%s", endpoint), Database: "auth_test"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return repo
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.User{Email: "a@x.com", Username: "alice", Role: domain.RoleUser}, "stored-hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil || byID.Email != "a@x.com" || byID.Username != "alice" {
		t.Fatalf("find by id: %+v, %v", byID, err)
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) || !byID.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("timestamps changed on round trip: created %v, read %v", created.CreatedAt, byID.CreatedAt)
	}
	if created.CreatedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("created_at must be at millisecond precision, got %v", created.CreatedAt)
	}

	cred, err := repo.FindCredentialByEmail(ctx, "a@x.com")
	if err != nil || cred.PasswordHash != "stored-hash" || cred.User.ID != created.ID {
		t.Fatalf("find credential: %+v, %v", cred, err)
	}

	if _, err := repo.FindByEmail(ctx, "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_UniqueEmailUnderConcurrency(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{Email: "race@x.com", Role: domain.RoleUser}, "h")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrEmailTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", ok)
	}
}

func TestMongoUser_ToDomainKeepsSubSecondTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 250*int(time.Millisecond), time.FixedZone("UTC+2", 2*60*60))
	u := (&mongoUser{ID: "u1", Email: "a@x.com", Role: "user", CreatedAt: ts, UpdatedAt: ts}).toDomain()

	if !u.CreatedAt.Equal(ts) || u.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected created_at: %v", u.CreatedAt)
	}
	if u.CreatedAt.Nanosecond() != 250*int(time.Millisecond) {
		t.Fatalf("sub-second precision lost: %v", u.CreatedAt)
	}
}

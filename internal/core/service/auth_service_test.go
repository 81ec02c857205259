package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
	"github.com/deathkiller/api/internal/infrastructure/security/password"
	"github.com/deathkiller/api/internal/infrastructure/security/token"
)

type stubUserRepo struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*domain.User
	hashes map[string]string
	// emailIdx emulates the store's unique constraint.
	emailIdx  map[string]string
	createErr error
	lookupErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:     make(map[string]*domain.User),
		hashes:   make(map[string]string),
		emailIdx: make(map[string]string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	id, ok := r.emailIdx[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindCredentialByEmail(_ context.Context, email string) (*domain.UserCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	id, ok := r.emailIdx[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.UserCredential{User: cloneUser(r.byID[id]), PasswordHash: r.hashes[id]}, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User, hash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.emailIdx[user.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	r.seq++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("user-%d", r.seq)
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	r.byID[created.ID] = created
	r.hashes[created.ID] = hash
	r.emailIdx[created.Email] = created.ID
	return cloneUser(created), nil
}

func (r *stubUserRepo) Ping(context.Context) error { return nil }

func (r *stubUserRepo) count(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

// racingRepo holds every caller at the existence check until all of them have
// passed it, so the store's unique constraint is what decides the winner.
type racingRepo struct {
	*stubUserRepo
	barrier *sync.WaitGroup
}

func (r *racingRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.stubUserRepo.FindByEmail(ctx, email)
	r.barrier.Done()
	r.barrier.Wait()
	return u, err
}

type countingHasher struct {
	ports.PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(plain, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(plain, hash)
}

func newTestService(t *testing.T, repo ports.UserRepository) (*AuthService, *token.Service) {
	t.Helper()
	hasher, err := password.New(password.Config{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := token.New(token.Config{Secret: "service-test-secret-0123456789abcdef"})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc, err := NewAuthService(repo, hasher, tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, tokens
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestService(t, repo)
	ctx := context.Background()

	reg, err := svc.Register(ctx, ports.RegisterInput{Email: "A@X.com ", Password: "secret1", Username: "alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "a@x.com" {
		t.Fatalf("email not normalised: %q", reg.User.Email)
	}
	if reg.User.Role != domain.RoleUser {
		t.Fatalf("role = %q, want user", reg.User.Role)
	}
	if repo.hashes[reg.User.ID] == "secret1" {
		t.Fatalf("password stored in plaintext")
	}

	login, err := svc.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := tokens.Verify(login.Token)
	if err != nil {
		t.Fatalf("verify login token: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Email != "a@x.com" || claims.Role != domain.RoleUser {
		t.Fatalf("claims do not match user: %+v", claims)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Email: "bob@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, ports.RegisterInput{Email: "BOB@x.com", Password: "other12"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if n := repo.count("bob@x.com"); n != 1 {
		t.Fatalf("expected exactly one user, got %d", n)
	}
}

func TestAuthService_Register_ConcurrentSameEmail(t *testing.T) {
	const attempts = 8
	base := newStubUserRepo()
	barrier := &sync.WaitGroup{}
	barrier.Add(attempts)
	svc, _ := newTestService(t, &racingRepo{stubUserRepo: base, barrier: barrier})

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "race@x.com", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrEmailTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
	}
	if n := base.count("race@x.com"); n != 1 {
		t.Fatalf("expected exactly one user, got %d", n)
	}
}

func TestAuthService_Register_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = errors.New("connection reset")
	svc, _ := newTestService(t, repo)

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "c@x.com", Password: "secret1"})
	if err == nil || domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Email: "dave@x.com", Password: "goodpass"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "dave@x.com", "badpass")
	_, unknownEmail := svc.Login(ctx, "ghost@x.com", "goodpass")

	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) || !errors.Is(unknownEmail, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestAuthService_Login_UnknownEmailStillVerifies(t *testing.T) {
	repo := newStubUserRepo()
	hasher, _ := password.New(password.Config{BcryptCost: bcrypt.MinCost})
	counting := &countingHasher{PasswordHasher: hasher}
	tokens, _ := token.New(token.Config{Secret: "service-test-secret-0123456789abcdef"})
	svc, err := NewAuthService(repo, counting, tokens, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	if _, err := svc.Login(context.Background(), "ghost@x.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if counting.verifies != 1 {
		t.Fatalf("expected one hash verification for unknown email, got %d", counting.verifies)
	}
}

func TestAuthService_Login_StoreFailureIsInternal(t *testing.T) {
	repo := newStubUserRepo()
	repo.lookupErr = errors.New("timeout")
	svc, _ := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials: %v", err)
	}
}

func TestAuthService_Profile(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	reg, _ := svc.Register(ctx, ports.RegisterInput{Email: "e@x.com", Password: "secret1"})

	user, err := svc.Profile(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.Email != "e@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.Profile(ctx, "vanished"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/metrics"
	"github.com/ErlanBelekov/auth-service/internal/password"
	"github.com/ErlanBelekov/auth-service/internal/repository"
	"github.com/ErlanBelekov/auth-service/internal/token"
	"github.com/ErlanBelekov/auth-service/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	create      func(ctx context.Context, user *domain.User) (*domain.User, error)
	findByEmail func(ctx context.Context, email string) (*domain.User, error)
	findByID    func(ctx context.Context, id string) (*domain.User, error)
	list        func(ctx context.Context, input repository.ListUsersInput) ([]*domain.User, error)
	count       func(ctx context.Context) (int, error)
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.create(ctx, user)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) List(ctx context.Context, input repository.ListUsersInput) ([]*domain.User, error) {
	return r.list(ctx, input)
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	return r.count(ctx)
}

// memUserRepo is a directory backed by a map with a unique email index.
type memUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	seq   int
	delay time.Duration // widens the gap between lookup and insert
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.seq++
	cp := *user
	cp.ID = fmt.Sprintf("user-%d", r.seq)
	cp.Email = strings.ToLower(cp.Email)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUserRepo) List(context.Context, repository.ListUsersInput) ([]*domain.User, error) {
	return nil, nil
}

func (r *memUserRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return s.err
}

// ---- helpers ----

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	s, err := token.NewService([]byte(testJWTKey), time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return s
}

func newUsecase(t *testing.T, repo repository.UserRepository, sender *fakeEmailSender) *usecase.AuthUsecase {
	t.Helper()
	if sender == nil {
		sender = &fakeEmailSender{}
	}
	return usecase.NewAuthUsecase(repo, password.NewHasher(bcrypt.MinCost), newTokens(t), sender, discardLogger)
}

func registerInput(email string) usecase.RegisterInput {
	return usecase.RegisterInput{
		Name:            "Ada",
		Email:           email,
		Password:        "pw123456",
		PasswordConfirm: "pw123456",
	}
}

// ---- Register ----

func TestRegister_CreatesStandardUnverifiedUser(t *testing.T) {
	repo := newMemUserRepo()
	sender := &fakeEmailSender{}
	uc := newUsecase(t, repo, sender)

	user, err := uc.Register(context.Background(), registerInput("ada@x.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("role = %q, want %q", user.Role, domain.RoleUser)
	}
	if user.Verified {
		t.Error("new user should not be verified")
	}
	if user.PasswordHash == "pw123456" || user.PasswordHash == "" {
		t.Errorf("password hash %q is not a digest", user.PasswordHash)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ada@x.com" {
		t.Errorf("welcome email sent to %v, want [ada@x.com]", sender.sent)
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	repo := &fakeUserRepo{}
	in := registerInput("ada@x.com")
	in.PasswordConfirm = "something-else"

	_, err := newUsecase(t, repo, nil).Register(context.Background(), in)
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Errorf("want ErrPasswordMismatch, got %v", err)
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	in := registerInput("ada@x.com")
	in.Password = strings.Repeat("x", password.MaxLength+1)
	in.PasswordConfirm = in.Password

	_, err := newUsecase(t, repo, nil).Register(context.Background(), in)
	if !errors.Is(err, domain.ErrInvalidPassword) {
		t.Errorf("want ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newMemUserRepo()
	uc := newUsecase(t, repo, nil)

	if _, err := uc.Register(context.Background(), registerInput("ada@x.com")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := uc.Register(context.Background(), registerInput("ADA@x.com"))
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_LateUniqueViolationIsDuplicate(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, _ *domain.User) (*domain.User, error) {
			return nil, domain.ErrDuplicateEmail
		},
	}

	_, err := newUsecase(t, repo, nil).Register(context.Background(), registerInput("ada@x.com"))
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_ConcurrentSameEmail_ExactlyOneSucceeds(t *testing.T) {
	repo := newMemUserRepo()
	repo.delay = 5 * time.Millisecond
	uc := newUsecase(t, repo, nil)

	const attempts = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		dupes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Register(context.Background(), registerInput("race@x.com"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrDuplicateEmail):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Errorf("successful registrations = %d, want 1", ok)
	}
	if dupes != attempts-1 {
		t.Errorf("duplicate errors = %d, want %d", dupes, attempts-1)
	}
}

func TestRegister_RepoError_Propagates(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, repoErr
		},
	}

	_, err := newUsecase(t, repo, nil).Register(context.Background(), registerInput("ada@x.com"))
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
}

func TestRegister_EmailFailureDoesNotFailRegistration(t *testing.T) {
	repo := newMemUserRepo()
	sender := &fakeEmailSender{err: errors.New("smtp unavailable")}

	if _, err := newUsecase(t, repo, sender).Register(context.Background(), registerInput("ada@x.com")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegister_CountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues("duplicate_email"))

	repo := newMemUserRepo()
	uc := newUsecase(t, repo, nil)
	_, _ = uc.Register(context.Background(), registerInput("ada@x.com"))
	_, _ = uc.Register(context.Background(), registerInput("ada@x.com"))

	after := testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues("duplicate_email"))
	if after-before != 1 {
		t.Errorf("duplicate_email counter moved by %v, want 1", after-before)
	}
}

// ---- Login ----

func TestLogin_ReturnsTokenForSubject(t *testing.T) {
	repo := newMemUserRepo()
	uc := newUsecase(t, repo, nil)

	user, err := uc.Register(context.Background(), registerInput("ada@x.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := uc.Login(context.Background(), "ada@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.ExpiresIn != time.Hour {
		t.Errorf("ExpiresIn = %v, want 1h", res.ExpiresIn)
	}

	sub, err := newTokens(t).Validate(res.Token)
	if err != nil {
		t.Fatalf("returned token is invalid: %v", err)
	}
	if sub != user.ID {
		t.Errorf("sub = %q, want %q", sub, user.ID)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	repo := newMemUserRepo()
	uc := newUsecase(t, repo, nil)
	if _, err := uc.Register(context.Background(), registerInput("ada@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	res1, wrongPassword := uc.Login(context.Background(), "ada@x.com", "not-the-password")
	res2, unknownEmail := uc.Login(context.Background(), "nobody@x.com", "pw123456")

	if res1 != nil || res2 != nil {
		t.Fatal("failed logins must not return a result")
	}
	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: want ErrInvalidCredentials, got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("error messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestLogin_MalformedStoredDigest_InvalidCredentials(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "ada@x.com", PasswordHash: "corrupted", Role: domain.RoleUser}, nil
		},
	}

	_, err := newUsecase(t, repo, nil).Login(context.Background(), "ada@x.com", "pw123456")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_RepoError_Propagates(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, repoErr
		},
	}

	_, err := newUsecase(t, repo, nil).Login(context.Background(), "ada@x.com", "pw123456")
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Error("store failure must not look like bad credentials")
	}
}

// ---- Logout / GetSelf ----

func TestLogout_CountsEvent(t *testing.T) {
	before := testutil.ToFloat64(metrics.LogoutsTotal)
	newUsecase(t, &fakeUserRepo{}, nil).Logout(context.Background(), domain.Identity{UserID: "user-1", Role: domain.RoleUser})
	if got := testutil.ToFloat64(metrics.LogoutsTotal) - before; got != 1 {
		t.Errorf("logouts counter moved by %v, want 1", got)
	}
}

func TestGetSelf(t *testing.T) {
	repo := newMemUserRepo()
	uc := newUsecase(t, repo, nil)
	user, err := uc.Register(context.Background(), registerInput("ada@x.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := uc.GetSelf(context.Background(), domain.IdentityOf(user))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID || got.Email != "ada@x.com" {
		t.Errorf("got %+v, want user %s", got, user.ID)
	}
}

func TestGetSelf_DeletedUser_NotFound(t *testing.T) {
	repo := &fakeUserRepo{
		findByID: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}

	_, err := newUsecase(t, repo, nil).GetSelf(context.Background(), domain.Identity{UserID: "gone"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

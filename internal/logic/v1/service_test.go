package v1

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hoangnd/tokengate/internal/core/domain"
)

// --- fakes ---

type fakeUserRepo struct {
	byEmail   map[string]*domain.UserRow
	nextID    int
	createErr error
	existsErr error
	getErr    error
	created   []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.UserRow), nextID: 1}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, name, email, passwordHash string) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextID
	f.nextID++
	f.byEmail[email] = &domain.UserRow{ID: id, Name: name, Email: email, PasswordHash: passwordHash}
	f.created = append(f.created, email)
	return id, nil
}

type fakeSessionRepo struct {
	byToken    map[string]*domain.SessionRow
	replaceErr error
	deleteErr  error
	getErr     error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byToken: make(map[string]*domain.SessionRow)}
}

func (f *fakeSessionRepo) Replace(ctx context.Context, userID int, token string) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	for t, row := range f.byToken {
		if row.UserID == userID {
			delete(f.byToken, t)
		}
	}
	f.byToken[token] = &domain.SessionRow{UserID: userID}
	return nil
}

func (f *fakeSessionRepo) GetUserByToken(ctx context.Context, token string) (*domain.SessionRow, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byToken[token], nil
}

func (f *fakeSessionRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if _, ok := f.byToken[token]; !ok {
		return false, nil
	}
	delete(f.byToken, token)
	return true, nil
}

func registered(t *testing.T, users *fakeUserRepo, name, email, password string) *domain.UserRow {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := users.Create(context.Background(), name, email, string(hash))
	require.NoError(t, err)
	return &domain.UserRow{ID: id, Name: name, Email: email}
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	users := newFakeUserRepo()
	s := NewAuthService(users, newFakeSessionRepo())

	user, err := s.Register(context.Background(), domain.RegisterRequest{
		Name: "Ann", Email: "ann@x.com", Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@x.com", user.Email)
	assert.NotZero(t, user.ID)

	// Stored hash verifies against the plaintext and is not the plaintext.
	row := users.byEmail["ann@x.com"]
	require.NotNil(t, row)
	assert.NotEqual(t, "secret1", row.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte("secret1")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	registered(t, users, "Ann", "ann@x.com", "secret1")
	s := NewAuthService(users, newFakeSessionRepo())

	_, err := s.Register(context.Background(), domain.RegisterRequest{
		Name: "Other", Email: "ann@x.com", Password: "secret2",
	})
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")

	// No second row was written.
	assert.Equal(t, []string{"ann@x.com"}, users.created)
}

func TestRegister_StorageError(t *testing.T) {
	users := newFakeUserRepo()
	users.existsErr = errors.New("connection refused")
	s := NewAuthService(users, newFakeSessionRepo())

	_, err := s.Register(context.Background(), domain.RegisterRequest{
		Name: "Ann", Email: "ann@x.com", Password: "secret1",
	})
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve), "storage errors must not surface as validation errors")
}

func TestLogin_Success(t *testing.T) {
	users := newFakeUserRepo()
	row := registered(t, users, "Ann", "ann@x.com", "secret1")
	sessions := newFakeSessionRepo()
	s := NewAuthService(users, sessions)

	resp, err := s.Login(context.Background(), domain.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, row.ID, resp.User.ID)
	assert.Equal(t, "Ann", resp.User.Name)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), resp.Token, "token must be 32 hex-encoded random bytes")
	assert.Contains(t, sessions.byToken, resp.Token)
}

func TestLogin_UnknownEmailAndWrongPassword(t *testing.T) {
	users := newFakeUserRepo()
	registered(t, users, "Ann", "ann@x.com", "secret1")
	s := NewAuthService(users, newFakeSessionRepo())

	_, err := s.Login(context.Background(), domain.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(context.Background(), domain.LoginRequest{Email: "ann@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SingleSession(t *testing.T) {
	users := newFakeUserRepo()
	registered(t, users, "Ann", "ann@x.com", "secret1")
	sessions := newFakeSessionRepo()
	s := NewAuthService(users, sessions)

	first, err := s.Login(context.Background(), domain.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	second, err := s.Login(context.Background(), domain.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)

	// The first token was revoked by the second login.
	_, err = s.GetUserByToken(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	user, err := s.GetUserByToken(context.Background(), second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.User.ID, user.ID)
}

func TestLogin_ReplaceFailureSurfaces(t *testing.T) {
	users := newFakeUserRepo()
	registered(t, users, "Ann", "ann@x.com", "secret1")
	sessions := newFakeSessionRepo()
	sessions.replaceErr = errors.New("deadlock detected")
	s := NewAuthService(users, sessions)

	_, err := s.Login(context.Background(), domain.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetUserByToken(t *testing.T) {
	users := newFakeUserRepo()
	registered(t, users, "Ann", "ann@x.com", "secret1")
	sessions := newFakeSessionRepo()
	sessions.byToken["tok1"] = &domain.SessionRow{UserID: 1, Name: "Ann", Email: "ann@x.com"}
	s := NewAuthService(users, sessions)

	user, err := s.GetUserByToken(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Equal(t, &domain.User{ID: 1, Name: "Ann", Email: "ann@x.com"}, user)

	_, err = s.GetUserByToken(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.GetUserByToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestLogout(t *testing.T) {
	sessions := newFakeSessionRepo()
	sessions.byToken["tok1"] = &domain.SessionRow{UserID: 1}
	s := NewAuthService(newFakeUserRepo(), sessions)

	require.NoError(t, s.Logout(context.Background(), "tok1"))
	assert.Empty(t, sessions.byToken)

	// Revoking again reports an invalid token, not success.
	assert.ErrorIs(t, s.Logout(context.Background(), "tok1"), ErrTokenInvalid)
	assert.ErrorIs(t, s.Logout(context.Background(), ""), ErrTokenMissing)
}

func TestNewToken_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		tok, err := newToken()
		require.NoError(t, err)
		assert.Len(t, tok, 64)
		assert.False(t, seen[tok], "tokens must not repeat")
		seen[tok] = true
	}
}

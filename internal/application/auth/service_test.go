package auth

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/internal/domain/repository/repotest"
	"github.com/jhoicas/productivity-api/internal/infrastructure/cache"
	"github.com/jhoicas/productivity-api/pkg/jwt"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	svc   *Service
	store *repotest.Store
	cache *cache.Memory
	clock *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := repotest.New().WithClock(c.now)
	mem := cache.NewMemory().WithClock(c.now)
	tokens := jwt.NewManager(jwt.Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     8 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "productivity-app",
		Audience:      "productivity-app-users",
	}).WithClock(c.now)
	svc := NewService(store, mem, tokens, zerolog.Nop()).
		WithClock(c.now).
		WithBcryptCost(bcrypt.MinCost)
	return &harness{svc: svc, store: store, cache: mem, clock: c}
}

func (h *harness) register(t *testing.T, username, email string) *dto.AuthResponse {
	t.Helper()
	res, err := h.svc.Register(context.Background(), dto.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  "Aa1!aaaa",
		FirstName: "A",
		LastName:  "B",
	})
	require.NoError(t, err)
	return res
}

func assertErrType(t *testing.T, err error, want domain.ErrorType) *domain.Error {
	t.Helper()
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok, "se esperaba *domain.Error, llegó %T", err)
	assert.Equal(t, want, de.Type)
	return de
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"cumple la política", "Aa1!aaaa", false},
		{"corta", "Aa1!aaa", true},
		{"sin mayúscula", "aa1!aaaa", true},
		{"sin minúscula", "AA1!AAAA", true},
		{"sin número", "Aaa!aaaa", true},
		{"sin símbolo", "Aa1aaaaa", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				de := assertErrType(t, err, domain.TypeValidation)
				assert.NotEmpty(t, de.Details)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")

	assert.Equal(t, "a@x.com", res.User.Email)
	assert.Equal(t, "agent", res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	rows := h.store.Rows("users")
	require.Len(t, rows, 1)
	stored := rows[0].String("password_hash")
	assert.NotEqual(t, "Aa1!aaaa", stored)
	assert.True(t, VerifyPassword("Aa1!aaaa", stored))

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), stored)
}

func TestRegister_CaseFoldedDuplicates(t *testing.T) {
	h := newHarness(t)
	h.register(t, "Alice", "A@X.com")

	_, err := h.svc.Register(context.Background(), dto.RegisterRequest{
		Username: "ALICE", Email: "other@x.com", Password: "Aa1!aaaa", FirstName: "A", LastName: "B",
	})
	de := assertErrType(t, err, domain.TypeConflict)
	assert.Equal(t, "Username already exists", de.Message)

	_, err = h.svc.Register(context.Background(), dto.RegisterRequest{
		Username: "bob", Email: "a@x.COM", Password: "Aa1!aaaa", FirstName: "A", LastName: "B",
	})
	de = assertErrType(t, err, domain.TypeConflict)
	assert.Equal(t, "Email already exists", de.Message)
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "password", FirstName: "A", LastName: "B",
	})
	assertErrType(t, err, domain.TypeValidation)
	assert.Empty(t, h.store.Rows("users"))
}

func TestRegister_WithOrganizationCreatesMembership(t *testing.T) {
	h := newHarness(t)
	orgID := h.store.Seed("organizations", repository.Record{"name": "Acme", "slug": "acme"})[0]

	res, err := h.svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Aa1!aaaa", FirstName: "A", LastName: "B",
		Role: "manager", OrganizationID: orgID,
	})
	require.NoError(t, err)

	ms := h.store.Rows("user_organizations")
	require.Len(t, ms, 1)
	assert.Equal(t, res.User.ID, ms[0].String("user_id"))
	assert.Equal(t, "manager", ms[0].String("role"))

	p, err := h.svc.Authenticate(context.Background(), res.AccessToken, "")
	require.NoError(t, err)
	assert.Equal(t, orgID, p.CurrentOrganizationID)
	assert.True(t, p.InActiveOrganization())
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", "a@x.com")
	ctx := context.Background()

	for i := 0; i < MaxLoginAttempts; i++ {
		_, err := h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "Wrong1!pass"})
		de := assertErrType(t, err, domain.TypeUnauthorized)
		assert.Equal(t, "Invalid credentials", de.Message)
	}

	// Con la cuenta bloqueada ni la contraseña correcta entra.
	_, err := h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "Aa1!aaaa"})
	assertErrType(t, err, domain.TypeForbidden)

	h.clock.advance(LockDuration - time.Second)
	_, err = h.svc.Login(ctx, dto.LoginRequest{Email: "A@x.com", Password: "Aa1!aaaa"})
	assertErrType(t, err, domain.TypeForbidden)

	h.clock.advance(time.Second)
	res, err := h.svc.Login(ctx, dto.LoginRequest{Email: "A@x.com", Password: "Aa1!aaaa"})
	require.NoError(t, err)
	assert.NotNil(t, res.User.LastLogin)

	rows := h.store.Rows("users")
	assert.Equal(t, json.Number("0"), rows[0]["login_attempts"])
	assert.Nil(t, rows[0]["locked_until"])
}

func TestLogin_ExpiredLockRestartsCounter(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", "a@x.com")
	ctx := context.Background()

	for i := 0; i < MaxLoginAttempts; i++ {
		_, _ = h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "nope"})
	}
	h.clock.advance(LockDuration)

	// Un fallo tras el vencimiento cuenta como el primero, no vuelve a bloquear.
	_, err := h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "nope"})
	assertErrType(t, err, domain.TypeUnauthorized)
	_, err = h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "Aa1!aaaa"})
	require.NoError(t, err)
}

func TestLogin_UnknownUserAndMissingIdentifier(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "x"})
	assertErrType(t, err, domain.TypeUnauthorized)

	_, err = h.svc.Login(context.Background(), dto.LoginRequest{Password: "x"})
	assertErrType(t, err, domain.TypeValidation)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")
	_, err := h.store.Update(context.Background(), "users", res.User.ID, repository.Record{"is_active": false})
	require.NoError(t, err)

	_, err = h.svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "Aa1!aaaa"})
	de := assertErrType(t, err, domain.TypeForbidden)
	assert.Equal(t, "Account is deactivated", de.Message)
}

func TestLogin_OrganizationMustBeMembership(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice", "a@x.com")
	other := h.store.Seed("organizations", repository.Record{"name": "Other", "slug": "other"})[0]

	_, err := h.svc.Login(context.Background(), dto.LoginRequest{
		Username: "alice", Password: "Aa1!aaaa", OrganizationID: other,
	})
	de := assertErrType(t, err, domain.TypeForbidden)
	assert.Equal(t, "User does not have access to this organization", de.Message)
}

func TestRefresh_RequiresCachedToken(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")
	ctx := context.Background()

	out, err := h.svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)

	h.svc.Logout(ctx, res.User.ID)
	_, err = h.svc.Refresh(ctx, res.RefreshToken)
	assertErrType(t, err, domain.TypeUnauthorized)

	_, err = h.svc.Refresh(ctx, "garbage")
	assertErrType(t, err, domain.TypeUnauthorized)
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")
	ctx := context.Background()

	p, err := h.svc.Authenticate(ctx, res.AccessToken, "")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)
	assert.Equal(t, domain.RoleAgent, p.Role)
	assert.Empty(t, p.CurrentOrganizationID)

	t.Run("organización ajena por cabecera", func(t *testing.T) {
		org := h.store.Seed("organizations", repository.Record{"name": "X", "slug": "x"})[0]
		_, err := h.svc.Authenticate(ctx, res.AccessToken, org)
		assertErrType(t, err, domain.TypeForbidden)
	})

	t.Run("token vencido", func(t *testing.T) {
		h.clock.advance(9 * time.Hour)
		defer h.clock.advance(-9 * time.Hour)
		_, err := h.svc.Authenticate(ctx, res.AccessToken, "")
		de := assertErrType(t, err, domain.TypeUnauthorized)
		assert.Equal(t, "Token expired", de.Message)
	})

	t.Run("token mal formado", func(t *testing.T) {
		_, err := h.svc.Authenticate(ctx, "abc.def.ghi", "")
		de := assertErrType(t, err, domain.TypeUnauthorized)
		assert.Equal(t, "Invalid token", de.Message)
	})

	t.Run("usuario desactivado después de emitir el token", func(t *testing.T) {
		_, err := h.store.Update(ctx, "users", res.User.ID, repository.Record{"is_active": false})
		require.NoError(t, err)
		_, err = h.svc.Authenticate(ctx, res.AccessToken, "")
		assertErrType(t, err, domain.TypeUnauthorized)
	})
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")
	ctx := context.Background()

	err := h.svc.ChangePassword(ctx, res.User.ID, dto.ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "Bb2@bbbb"})
	de := assertErrType(t, err, domain.TypeUnauthorized)
	assert.Equal(t, "Current password is incorrect", de.Message)

	err = h.svc.ChangePassword(ctx, res.User.ID, dto.ChangePasswordRequest{CurrentPassword: "Aa1!aaaa", NewPassword: "weak"})
	assertErrType(t, err, domain.TypeValidation)

	require.NoError(t, h.svc.ChangePassword(ctx, res.User.ID, dto.ChangePasswordRequest{CurrentPassword: "Aa1!aaaa", NewPassword: "Bb2@bbbb"}))
	_, err = h.svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "Bb2@bbbb"})
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "alice", "a@x.com")
	lang := "ar"
	first := " Alicia "

	out, err := h.svc.UpdateProfile(context.Background(), res.User.ID, dto.UpdateProfileRequest{FirstName: &first, Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", out.FirstName)
	assert.Equal(t, "ar", out.Language)
	assert.Equal(t, "B", out.LastName)

	_, err = h.svc.UpdateProfile(context.Background(), res.User.ID, dto.UpdateProfileRequest{})
	assertErrType(t, err, domain.TypeValidation)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/ratelimit"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/auth"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc      *AuthService
	staff    *fakeStaffRepo
	attempts ratelimit.AttemptStore
	audit    *fakeAuditRepo
	auditSvc *AuditService
	jwt      *auth.JWTManager
	member   *staff.Staff
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthFixture(t *testing.T, attempts ratelimit.AttemptStore) *authFixture {
	t.Helper()
	member := &staff.Staff{
		ID:           uuid.New(),
		StaffNumber:  "0042",
		Name:         "Ratna Sari",
		Role:         domain.RolePharmacist,
		PasswordHash: hashPassword(t, "s3cret"),
		IsActive:     true,
	}
	if attempts == nil {
		attempts = ratelimit.NewMemoryStore()
	}
	staffRepo := newFakeStaffRepo(member)
	auditRepo := &fakeAuditRepo{}
	m := newTestMetrics()
	auditSvc := NewAuditService(auditRepo, m, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-at-least-32-bytes-long",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medscan-test",
	})

	svc := NewAuthService(staffRepo, attempts, jwtManager, auditSvc, m,
		config.LoginConfig{MaxAttempts: 3, Lockout: time.Minute}, zap.NewNop())

	return &authFixture{
		svc:      svc,
		staff:    staffRepo,
		attempts: attempts,
		audit:    auditRepo,
		auditSvc: auditSvc,
		jwt:      jwtManager,
		member:   member,
	}
}

func login(f *authFixture, num, pw string) (*LoginResult, error) {
	return f.svc.Login(context.Background(), staff.LoginCommand{StaffNumber: num, Password: pw, IP: "10.0.0.1"})
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, nil)

	res, err := login(f, " 0042 ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "0042", res.Staff.StaffNumber)
	assert.Equal(t, "Bearer", res.Tokens.TokenType)

	claims, err := f.jwt.ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, claims.StaffID)
	assert.Equal(t, "0042", claims.StaffNumber)

	assert.Contains(t, f.staff.touched, f.member.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.LoginAttemptsTotal.WithLabelValues("success")))

	f.auditSvc.Shutdown()
	entries := f.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionLogin, entries[0].Action)
}

func TestLogin_ValidatesInput(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := login(f, "42", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestLogin_WrongPasswordAndUnknownStaffLookAlike(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, errWrong := login(f, "0042", "nope")
	_, errUnknown := login(f, "9999", "nope")

	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.member.IsActive = false

	_, err := login(f, "0042", "s3cret")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogin_LocksOutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t, nil)

	for i := 0; i < 3; i++ {
		_, err := login(f, "0042", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := login(f, "0042", "s3cret")
	assert.ErrorIs(t, err, ErrTooManyAttempts, "correct password is refused while locked out")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.LoginAttemptsTotal.WithLabelValues("locked")))

	// A different client address has its own counter.
	_, err = f.svc.Login(context.Background(), staff.LoginCommand{StaffNumber: "0042", Password: "s3cret", IP: "10.0.0.2"})
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsFailureCount(t *testing.T) {
	f := newAuthFixture(t, nil)

	for i := 0; i < 2; i++ {
		_, _ = login(f, "0042", "wrong")
	}
	_, err := login(f, "0042", "s3cret")
	require.NoError(t, err)

	n, err := f.attempts.Count(context.Background(), "login:10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

type brokenAttemptStore struct{}

func (brokenAttemptStore) Count(context.Context, string) (int, error) {
	return 0, errors.New("redis: connection refused")
}

func (brokenAttemptStore) Increment(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("redis: connection refused")
}

func (brokenAttemptStore) Reset(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func TestLogin_AttemptStoreOutageFailsOpen(t *testing.T) {
	f := newAuthFixture(t, brokenAttemptStore{})

	_, err := login(f, "0042", "s3cret")
	assert.NoError(t, err)
}

func TestLogin_RepositoryError(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.staff.err = errors.New("db down")

	_, err := login(f, "0042", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	res, err := login(f, "0042", "s3cret")
	require.NoError(t, err)

	pair, err := f.svc.RefreshToken(context.Background(), res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.svc.RefreshToken(context.Background(), res.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access tokens cannot be used to refresh")

	f.member.IsActive = false
	_, err = f.svc.RefreshToken(context.Background(), res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout_WritesAuditEntry(t *testing.T) {
	f := newAuthFixture(t, nil)

	f.svc.Logout(context.Background(), f.member.Claims(), RequestMeta{IP: "10.0.0.9", RequestID: "r-1"})
	f.auditSvc.Shutdown()

	entries := f.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionLogout, entries[0].Action)
	assert.Equal(t, "r-1", entries[0].RequestID)
}

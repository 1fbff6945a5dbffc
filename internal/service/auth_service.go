package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/ratelimit"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid staff number or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
)

type AuthService struct {
	staffRepo  staff.Repository
	attempts   ratelimit.AttemptStore
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	metrics    *metrics.Collector
	cfg        config.LoginConfig
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	staffRepo staff.Repository,
	attempts ratelimit.AttemptStore,
	jwtManager *auth.JWTManager,
	auditSvc *AuditService,
	m *metrics.Collector,
	cfg config.LoginConfig,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		staffRepo:  staffRepo,
		attempts:   attempts,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		metrics:    m,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

type LoginResult struct {
	Tokens *domain.TokenPair `json:"tokens"`
	Staff  staff.Profile     `json:"staff"`
}

func (s *AuthService) Login(ctx context.Context, cmd staff.LoginCommand) (*LoginResult, error) {
	if errs := cmd.Normalize(); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	key := "login:" + cmd.IP

	// The attempt store is advisory: if it is unreachable logins stay possible.
	count, err := s.attempts.Count(ctx, key)
	if err != nil {
		s.log.Warn("login attempt store unavailable", zap.Error(err))
	} else if count >= s.cfg.MaxAttempts {
		s.metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		return nil, ErrTooManyAttempts
	}

	member, err := s.staffRepo.GetByStaffNumber(ctx, cmd.StaffNumber)
	if errors.Is(err, staff.ErrStaffNotFound) {
		// Burn the same bcrypt cost as a real comparison so response time
		// does not reveal which staff numbers exist.
		_, _ = bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
		s.recordFailure(ctx, key, cmd)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading staff: %w", err)
	}

	if !member.IsActive {
		s.metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(cmd.Password)); err != nil {
		s.recordFailure(ctx, key, cmd)
		return nil, ErrInvalidCredentials
	}

	if err := s.attempts.Reset(ctx, key); err != nil {
		s.log.Warn("failed to reset login attempts", zap.Error(err))
	}
	if err := s.staffRepo.TouchLastLogin(ctx, member.ID, s.now()); err != nil {
		s.log.Warn("failed to stamp last login", zap.String("staff_id", member.ID.String()), zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(member.Claims())
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        member.StaffNumber,
		Action:       domain.ActionLogin,
		ResourceType: "session",
		ResourceID:   member.ID.String(),
		IPAddress:    cmd.IP,
		Outcome:      "success",
	})

	s.log.Info("staff logged in",
		zap.String("staff_number", member.StaffNumber),
		zap.String("ip", cmd.IP),
	)

	return &LoginResult{Tokens: pair, Staff: member.Profile()}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string, cmd staff.LoginCommand) {
	s.metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()

	n, err := s.attempts.Increment(ctx, key, s.cfg.Lockout)
	if err != nil {
		s.log.Warn("failed to record login attempt", zap.Error(err))
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        cmd.StaffNumber,
		Action:       domain.ActionLoginFailed,
		ResourceType: "session",
		IPAddress:    cmd.IP,
		Outcome:      "invalid_credentials",
	})

	s.log.Warn("failed login attempt",
		zap.String("staff_number", cmd.StaffNumber),
		zap.String("ip", cmd.IP),
		zap.Int("attempts", n),
	)
}

// RefreshToken issues a new pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate staff is still active
	member, err := s.staffRepo.GetByID(ctx, claims.StaffID)
	if err != nil || !member.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(member.Claims())
}

// Logout only leaves a trail; access tokens expire on their own.
func (s *AuthService) Logout(ctx context.Context, claims *domain.Claims, meta RequestMeta) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        claims.StaffNumber,
		Action:       domain.ActionLogout,
		ResourceType: "session",
		ResourceID:   claims.StaffID.String(),
		IPAddress:    meta.IP,
		RequestID:    meta.RequestID,
		Outcome:      "success",
	})

	s.log.Info("staff logged out",
		zap.String("staff_number", claims.StaffNumber),
		zap.String("ip", meta.IP),
	)
}

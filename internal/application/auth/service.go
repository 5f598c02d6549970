package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainPrincipal "github.com/tradepost/tradepost/internal/domain/principal"
	domainSession "github.com/tradepost/tradepost/internal/domain/session"
)

// Service handles moderation dashboard authentication. Only principals
// with a moderation role and a password can sign in.
type Service struct {
	principalRepo domainPrincipal.Repository
	sessionRepo   domainSession.Repository
	sessionTTL    time.Duration
	logger        zerolog.Logger
}

// NewService creates an auth service.
func NewService(principalRepo domainPrincipal.Repository, sessionRepo domainSession.Repository, sessionTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		principalRepo: principalRepo,
		sessionRepo:   sessionRepo,
		sessionTTL:    sessionTTL,
		logger:        logger.With().Str("service", "auth").Logger(),
	}
}

// LoginResult contains login response.
type LoginResult struct {
	Principal *domainPrincipal.Principal
	Session   *domainSession.Session
	Token     string
}

// Login authenticates a principal and creates a dashboard session.
func (s *Service) Login(ctx context.Context, principalID int64, password string, userAgent, ipAddress *string) (*LoginResult, error) {
	p, err := s.principalRepo.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if p == nil || !domainPrincipal.VerifyPassword(p.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials")
	}
	if !p.Active {
		return nil, fmt.Errorf("account is suspended")
	}
	if p.Role == domainPrincipal.RoleNone {
		return nil, fmt.Errorf("no moderation role")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domainSession.Session{
		SessionID:   uuid.New(),
		TokenHash:   hashToken(token),
		PrincipalID: p.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
		LastSeenAt:  &now,
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("principal_id", p.ID).Msg("dashboard login")
	return &LoginResult{Principal: p, Session: sess, Token: token}, nil
}

// Authenticate validates a session token and returns the principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*domainPrincipal.Principal, *domainSession.Session, error) {
	if token == "" {
		return nil, nil, fmt.Errorf("missing token")
	}
	sess, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("session not found")
	}
	if sess.IsExpired(time.Now().UTC()) {
		_ = s.sessionRepo.DeleteByID(ctx, sess.SessionID)
		return nil, nil, fmt.Errorf("session expired")
	}
	p, err := s.principalRepo.GetByID(ctx, sess.PrincipalID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil || !p.Active || p.Role == domainPrincipal.RoleNone {
		return nil, nil, fmt.Errorf("principal not active")
	}
	_ = s.sessionRepo.UpdateLastSeen(ctx, sess.SessionID)
	return p, sess, nil
}

// Logout deletes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByTokenHash(ctx, hashToken(token))
}

// CleanupExpired removes expired dashboard sessions.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	return s.sessionRepo.DeleteExpired(ctx)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

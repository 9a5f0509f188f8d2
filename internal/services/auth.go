package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ourfish-bknd/internal/auth"
	"ourfish-bknd/internal/config"
	"ourfish-bknd/internal/logger"
	"ourfish-bknd/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("refresh token not found or revoked")
)

// maxSessionsPerUser is the number of live refresh tokens kept per user.
const maxSessionsPerUser = 2

type AuthService struct {
	db   *bun.DB
	jwt  *auth.JWTManager
	cfg  *config.Config
	logr *logger.Logger
}

func NewAuthService(db *bun.DB, jwt *auth.JWTManager, cfg *config.Config, logr *logger.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, cfg: cfg, logr: logr}
}

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Roles    []string `json:"roles"`
}

func userInfo(u *models.User, provider string) *UserInfo {
	return &UserInfo{ID: u.ID.String(), Email: u.Email, Name: u.Name, Provider: provider, Roles: u.Roles}
}

// LoginLocal checks an email and bcrypt password and issues a token pair.
func (s *AuthService) LoginLocal(ctx context.Context, email, password, deviceInfo string) (*auth.TokenPair, *UserInfo, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Where("email = ?", strings.ToLower(email)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" {
		return nil, nil, fmt.Errorf("account not configured for local login")
	}
	if err := ComparePassword(u.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, &u, "local", deviceInfo)
	if err != nil {
		return nil, nil, err
	}
	return pair, userInfo(&u, "local"), nil
}

// LoginLDAP binds as the user, reads the directory entry and provisions a
// local account on first login.
func (s *AuthService) LoginLDAP(ctx context.Context, ldapUser, ldapPass, deviceInfo string) (*auth.TokenPair, *UserInfo, error) {
	if ldapPass == "" {
		return nil, nil, ErrInvalidCredentials
	}
	username := stripDomain(ldapUser, s.cfg.LDAPUserDomain)

	ldap.DefaultTimeout = 10 * time.Second
	l, err := ldap.DialURL(s.cfg.LDAPServer)
	if err != nil {
		s.logr.Error("LDAP dial failed", zap.Error(err), zap.String("server", s.cfg.LDAPServer))
		return nil, nil, fmt.Errorf("ldap connection failed")
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			s.logr.Debug("LDAP close error", zap.Error(closeErr))
		}
	}()
	l.SetTimeout(30 * time.Second)

	bindDN := username
	if s.cfg.LDAPUserDomain != "" {
		bindDN = username + "@" + s.cfg.LDAPUserDomain
	}
	if err := l.Bind(bindDN, ldapPass); err != nil {
		s.logr.Warn("LDAP bind failed", zap.String("username", username))
		return nil, nil, ErrInvalidCredentials
	}

	searchReq := ldap.NewSearchRequest(
		s.cfg.LDAPBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1,
		0,
		false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(username)),
		[]string{"cn", "displayName", "mail"},
		nil,
	)
	sr, err := l.Search(searchReq)
	if err != nil {
		s.logr.Error("LDAP search failed", zap.Error(err), zap.String("username", username))
		return nil, nil, fmt.Errorf("user lookup failed")
	}
	if len(sr.Entries) == 0 {
		s.logr.Warn("LDAP: no entry found", zap.String("username", username))
		return nil, nil, fmt.Errorf("user not found in directory")
	}

	entry := sr.Entries[0]
	mail := strings.ToLower(entry.GetAttributeValue("mail"))
	if mail == "" {
		s.logr.Error("LDAP user missing email", zap.String("username", username))
		return nil, nil, fmt.Errorf("user account missing email")
	}
	name := entry.GetAttributeValue("displayName")
	if name == "" {
		name = entry.GetAttributeValue("cn")
	}
	if name == "" {
		name = username
	}

	u, err := s.provisionLDAPUser(ctx, mail, name)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, u, "ldap", deviceInfo)
	if err != nil {
		return nil, nil, err
	}
	s.logr.Info("LDAP login successful", zap.String("user_id", u.ID.String()), zap.String("email", mail))
	return pair, userInfo(u, "ldap"), nil
}

func (s *AuthService) provisionLDAPUser(ctx context.Context, mail, name string) (*models.User, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Where("email = ?", mail).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		u = models.User{ID: uuid.New(), Email: mail, Provider: "ldap", Name: name, Roles: []string{"viewer"}}
		if _, err := s.db.NewInsert().Model(&u).Returning("*").Exec(ctx); err != nil {
			s.logr.Error("failed to create user", zap.Error(err), zap.String("email", mail))
			return nil, fmt.Errorf("failed to create user account")
		}
		s.logr.Info("created LDAP user", zap.String("email", mail), zap.String("id", u.ID.String()))
	case err != nil:
		s.logr.Error("database error", zap.Error(err), zap.String("email", mail))
		return nil, fmt.Errorf("database error")
	case u.Provider != "ldap":
		if _, err := s.db.NewUpdate().Model(&u).Set("provider = ?", "ldap").WherePK().Exec(ctx); err != nil {
			s.logr.Warn("failed to mark user as ldap", zap.Error(err), zap.String("email", mail))
		}
	}
	return &u, nil
}

// issue records the login and stores a fresh refresh token.
func (s *AuthService) issue(ctx context.Context, u *models.User, method, deviceInfo string) (*auth.TokenPair, error) {
	now := time.Now().UTC()
	if _, err := s.db.NewUpdate().Model((*models.User)(nil)).Set("last_login_at = ?", now).Where("id = ?", u.ID).Exec(ctx); err != nil {
		s.logr.Warn("failed to record last login", zap.Error(err), zap.String("user_id", u.ID.String()))
	}

	pair, err := s.jwt.GenerateTokenPair(u.ID.String(), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion, method, u.Roles)
	if err != nil {
		s.logr.Error("token generation failed", zap.Error(err), zap.String("user_id", u.ID.String()))
		return nil, fmt.Errorf("failed to generate tokens")
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return storeRefreshToken(ctx, tx, u.ID, pair, deviceInfo)
	})
	if err != nil {
		s.logr.Error("failed to store refresh token", zap.Error(err), zap.String("user_id", u.ID.String()))
		return nil, fmt.Errorf("failed to store session")
	}
	return pair, nil
}

// storeRefreshToken stores the token hash and keeps at most
// maxSessionsPerUser live tokens per user, dropping the oldest.
func storeRefreshToken(ctx context.Context, db bun.IDB, userID uuid.UUID, pair *auth.TokenPair, deviceInfo string) error {
	now := time.Now().UTC()
	if _, err := db.NewDelete().Model((*models.RefreshToken)(nil)).
		Where("user_id = ? AND expires_at < ?", userID, now).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	count, err := db.NewSelect().Model((*models.RefreshToken)(nil)).
		Where("user_id = ? AND revoked = false AND expires_at > ?", userID, now).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count live tokens: %w", err)
	}
	if count >= maxSessionsPerUser {
		if _, err := db.NewDelete().Model((*models.RefreshToken)(nil)).
			Where("id IN (SELECT id FROM refresh_tokens WHERE user_id = ? AND revoked = false AND expires_at > ? ORDER BY created_at ASC LIMIT ?)",
				userID, now, count-maxSessionsPerUser+1).
			Exec(ctx); err != nil {
			return fmt.Errorf("prune oldest tokens: %w", err)
		}
	}

	rt := models.RefreshToken{
		ID:         uuid.New(),
		UserID:     userID,
		JTI:        pair.JTI,
		TokenHash:  auth.HashToken(pair.RefreshToken),
		DeviceInfo: &deviceInfo,
		CreatedAt:  now,
		ExpiresAt:  pair.RefreshExp,
	}
	if _, err := db.NewInsert().Model(&rt).Exec(ctx); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Refresh verifies a refresh token, revokes it and issues a new pair. The
// revoke and the insert of the new token share one transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, deviceInfo string) (*auth.TokenPair, error) {
	claims, err := s.jwt.VerifyToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != auth.RefreshToken {
		return nil, fmt.Errorf("%w: not a refresh token", auth.ErrInvalidToken)
	}

	var pair *auth.TokenPair
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rt models.RefreshToken
		err := tx.NewSelect().Model(&rt).
			Where("jti = ? AND token_hash = ? AND revoked = false AND expires_at > ?", claims.JTI, auth.HashToken(refreshToken), time.Now().UTC()).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenRevoked
		}
		if err != nil {
			return fmt.Errorf("lookup refresh token: %w", err)
		}

		var u models.User
		if err := tx.NewSelect().Model(&u).Where("id = ?", rt.UserID).Scan(ctx); err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		res, err := tx.NewUpdate().Model((*models.RefreshToken)(nil)).
			Set("revoked = true").
			Where("id = ? AND revoked = false", rt.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// a concurrent refresh used the token first
			return ErrTokenRevoked
		}

		pair, err = s.jwt.GenerateTokenPair(u.ID.String(), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion, "refresh", u.Roles)
		if err != nil {
			return err
		}
		return storeRefreshToken(ctx, tx, u.ID, pair, deviceInfo)
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the refresh token. Access tokens are rejected.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.VerifyToken(refreshToken)
	if err != nil {
		return err
	}
	if claims.Kind != auth.RefreshToken {
		return fmt.Errorf("%w: not a refresh token", auth.ErrInvalidToken)
	}
	_, err = s.db.NewUpdate().Model((*models.RefreshToken)(nil)).
		Set("revoked = true").
		Where("jti = ? AND token_hash = ?", claims.JTI, auth.HashToken(refreshToken)).
		Exec(ctx)
	return err
}

// CheckTokenVersion reports whether tokens of the given version are still
// accepted for the user.
func (s *AuthService) CheckTokenVersion(ctx context.Context, userID string, tokenVersion int) (bool, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Column("token_version").Where("id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return u.TokenVersion == tokenVersion, nil
}

// stripDomain removes a trailing "@domain" from a login name.
func stripDomain(user, domain string) string {
	user = strings.TrimSpace(user)
	if domain == "" {
		return user
	}
	suffix := "@" + strings.ToLower(domain)
	if strings.HasSuffix(strings.ToLower(user), suffix) {
		return user[:len(user)-len(suffix)]
	}
	return user
}

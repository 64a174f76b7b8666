package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

const invalidCredentials = "Unable to log in with provided credentials."

// TokenIssuer signs and verifies login tokens. Every token carries the id
// of a session row as its jti; deleting the row revokes the token.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Claims are the login token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenIssuer builds an issuer from configuration.
func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL, Now: time.Now}
}

func (ti *TokenIssuer) now() time.Time {
	if ti.Now == nil {
		return time.Now().UTC()
	}
	return ti.Now().UTC()
}

// Issue creates a session for user and returns its signed token.
func (ti *TokenIssuer) Issue(db *gorm.DB, user *models.User) (string, error) {
	now := ti.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ti.TTL),
		CreatedAt: now,
	}
	if err := db.Create(session).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parse verifies the signature and expiry of token.
func (ti *TokenIssuer) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return ti.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("token has no session id")
	}
	return claims, nil
}

// ValidateSession resolves a token to its user. Any failure is an
// AuthenticationError.
func ValidateSession(db *gorm.DB, ti *TokenIssuer, token string) (*models.User, *models.Session, error) {
	claims, err := ti.parse(strings.TrimSpace(token))
	if err != nil {
		log.WithError(err).Debug("token rejected")
		return nil, nil, types.AuthenticationError("Invalid token.")
	}

	var session models.Session
	err = db.Preload("User").
		Where("id = ? AND expires_at > ?", claims.ID, ti.now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.AuthenticationError("Invalid token.")
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	return &session.User, &session, nil
}

// Login checks credentials and issues a token.
func Login(db *gorm.DB, ti *TokenIssuer, username, password string) (string, *models.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "This field is required."
	}
	if password == "" {
		fields["password"] = "This field is required."
	}
	if len(fields) > 0 {
		return "", nil, types.FieldsError(fields)
	}

	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, types.AuthenticationError(invalidCredentials)
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, types.AuthenticationError(invalidCredentials)
	}

	token, err := ti.Issue(db, &user)
	if err != nil {
		return "", nil, err
	}
	log.WithFields(log.Fields{"user": user.ID, "role": user.Role}).Info("user logged in")
	return token, &user, nil
}

// Logout revokes a session.
func Logout(db *gorm.DB, sessionID string) error {
	if err := db.Delete(&models.Session{}, "id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now.
func PurgeExpiredSessions(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("expires_at <= ?", now.UTC()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

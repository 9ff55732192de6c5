package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenPrefix identifies Backer tokens
	TokenPrefix = "backer_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

var (
	// ErrInvalidToken is returned for malformed, unknown, revoked or expired tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token
// Format: backer_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	// First 8 chars after the prefix identify the token in listings
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, tg.HashToken(fullToken), prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// TokenManager stores API tokens and resolves them to users
type TokenManager struct {
	db        *sql.DB
	generator *TokenGenerator
	now       func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(db *sql.DB) *TokenManager {
	return &TokenManager{
		db:        db,
		generator: NewTokenGenerator(),
		now:       time.Now,
	}
}

// CreateToken creates a new API token and returns the plaintext once
func (tm *TokenManager) CreateToken(ctx context.Context, userID uuid.UUID, name string, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		ID:          uuid.New(),
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		ExpiresAt:   expiresAt,
	}

	query := `
		INSERT INTO api_tokens (id, user_id, token_hash, token_prefix, name, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tm.db.QueryRowContext(ctx, query, apiToken.ID, apiToken.UserID, apiToken.TokenHash,
		apiToken.TokenPrefix, apiToken.Name, apiToken.ExpiresAt).Scan(&apiToken.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	return apiToken, token, nil
}

// Authenticate validates a token and returns the associated user
func (tm *TokenManager) Authenticate(ctx context.Context, token string) (*User, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	query := `
		SELECT u.id, u.username, u.email, u.avatar_url, u.created_at, t.id
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
		  AND t.revoked_at IS NULL
		  AND (t.expires_at IS NULL OR t.expires_at > $2)
	`
	user := &User{}
	var tokenID uuid.UUID
	var email, avatarURL sql.NullString
	err := tm.db.QueryRowContext(ctx, query, tm.generator.HashToken(token), tm.now().UTC()).Scan(
		&user.ID, &user.Username, &email, &avatarURL, &user.CreatedAt, &tokenID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	user.Email = email.String
	user.AvatarURL = avatarURL.String

	if _, err := tm.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, tm.now().UTC(), tokenID); err != nil {
		return nil, fmt.Errorf("failed to update token usage: %w", err)
	}

	return user, nil
}

// RevokeToken revokes a token owned by the user
func (tm *TokenManager) RevokeToken(ctx context.Context, tokenID, userID uuid.UUID) error {
	result, err := tm.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND user_id = $3 AND revoked_at IS NULL`,
		tm.now().UTC(), tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("token not found")
	}

	return nil
}

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"dialdesk/internal/model"
)

// SessionTTL is the lifetime of a login token and its backing session row.
const SessionTTL = 7 * 24 * time.Hour

// Claims carries the identity snapshot embedded in login tokens. The
// registered ID claim (jti) is the primary key of the backing session
// row, so deleting the row revokes the token no matter how far its exp
// claim reaches.
type Claims struct {
	UserID    uint           `json:"user_id"`
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	Extension string         `json:"extension"`
	FullName  string         `json:"full_name"`
	jwt.RegisteredClaims
}

// SessionID extracts the backing session's ID from the jti claim.
func (c *Claims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}

// TokenService mints and parses session-bound login tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given signing secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
	}
}

// Generate signs a login token for the user. The returned session ID is
// the token's jti claim; the caller must persist it with HashToken(token)
// or the token will never validate.
func (s *TokenService) Generate(user *model.User, now time.Time) (sessionID uuid.UUID, token string, expiresAt time.Time, err error) {
	sessionID = uuid.New()
	expiresAt = now.Add(SessionTTL)

	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Extension: user.Extension,
		FullName:  user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = tokenObj.SignedString(s.secret)
	if err != nil {
		return uuid.Nil, "", time.Time{}, err
	}
	return sessionID, token, expiresAt, nil
}

// Parse verifies the signature and shape of a login token and returns its
// claims. Parsing alone authenticates nobody: the caller still has to
// check the backing session row.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// HashToken returns the hex SHA-256 digest stored next to a session. The
// raw token never touches the database.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

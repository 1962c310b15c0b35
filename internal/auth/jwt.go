package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jwt-manager")

// Context identifies the authenticated caller. It is passed explicitly
// into every service operation instead of being read from ambient state.
type Context struct {
	UserID string
	Role   string
}

// Claims represents JWT claims for the marketplace API
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	signingKey string
	algorithm  string
	tokenTTL   time.Duration
	tracer     trace.Tracer
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(signingKey string, tokenTTL time.Duration) (*JWTManager, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("jwt signing key is required")
	}
	return &JWTManager{
		signingKey: signingKey,
		algorithm:  "HS256",
		tokenTTL:   tokenTTL,
		tracer:     tracer,
	}, nil
}

// GenerateToken generates a new JWT token for the given user
func (jm *JWTManager) GenerateToken(ctx context.Context, userID, email, role string) (string, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_token")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("user.role", role),
	)

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jm.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "agentmarket",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(jm.algorithm), claims)

	tokenString, err := token.SignedString([]byte(jm.signingKey))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns its claims
func (jm *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.validate_token")
	defer span.End()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jm.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jm.signingKey), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	span.SetAttributes(attribute.String("user.id", claims.UserID))

	return claims, nil
}

// RefreshToken issues a new token from an existing valid token
func (jm *JWTManager) RefreshToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := jm.ValidateToken(ctx, tokenString)
	if err != nil {
		return "", fmt.Errorf("cannot refresh invalid token: %w", err)
	}
	return jm.GenerateToken(ctx, claims.UserID, claims.Email, claims.Role)
}

package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medipos/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars-long",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "medipos-backend",
	})
}

func TestGenerateToken(t *testing.T) {
	svc := newTestJWTService()
	actorID := uuid.New()

	issued, err := svc.GenerateToken(actorID, "jane.doe")
	require.NoError(t, err)
	require.NotNil(t, issued)

	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	svc := newTestJWTService()
	actorID := uuid.New()

	issued, err := svc.GenerateToken(actorID, "jane.doe")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)

	assert.Equal(t, actorID.String(), claims.ActorID)
	assert.Equal(t, "jane.doe", claims.Name)
	assert.Equal(t, actorID.String(), claims.Subject)
	assert.Equal(t, "medipos-backend", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "token should carry a JTI")

	parsed, err := claims.GetActorUUID()
	require.NoError(t, err)
	assert.Equal(t, actorID, parsed)
}

func TestValidateToken_Malformed(t *testing.T) {
	svc := newTestJWTService()

	claims, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService(config.JWTConfig{
		Secret:                "a-completely-different-secret-key-32ch",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "medipos-backend",
	})

	issued, err := other.GenerateToken(uuid.New(), "eve")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars-long",
		AccessTokenExpiration: -1 * time.Minute,
		Issuer:                "medipos-backend",
	})

	issued, err := svc.GenerateToken(uuid.New(), "jane.doe")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.GenerateToken(uuid.New(), "jane.doe")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)

	ttl := claims.GetRemainingTTL()
	assert.Greater(t, ttl, 14*time.Minute)
	assert.LessOrEqual(t, ttl, 15*time.Minute)
}

func TestClaims_GetIssuedAtTime(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.GenerateToken(uuid.New(), "jane.doe")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now(), claims.GetIssuedAtTime(), 5*time.Second)
}

func TestClaims_GetRemainingTTL_NoExpiration(t *testing.T) {
	claims := &Claims{}
	assert.Equal(t, time.Duration(0), claims.GetRemainingTTL())
	assert.True(t, claims.GetIssuedAtTime().IsZero())
}

func TestGenerateToken_UniqueJTIs(t *testing.T) {
	svc := newTestJWTService()
	actorID := uuid.New()

	first, err := svc.GenerateToken(actorID, "jane.doe")
	require.NoError(t, err)
	second, err := svc.GenerateToken(actorID, "jane.doe")
	require.NoError(t, err)

	firstClaims, err := svc.ValidateToken(first.Token)
	require.NoError(t, err)
	secondClaims, err := svc.ValidateToken(second.Token)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestGetAccessTokenExpiration(t *testing.T) {
	svc := newTestJWTService()
	assert.Equal(t, 15*time.Minute, svc.GetAccessTokenExpiration())
}

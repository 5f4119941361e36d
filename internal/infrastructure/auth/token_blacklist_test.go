package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_AddAndCheck(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	jti := "token-jti-1"

	blacklisted, err := bl.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	err = bl.AddToBlacklist(ctx, jti, 1*time.Hour)
	require.NoError(t, err)

	blacklisted, err = bl.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestInMemoryTokenBlacklist_ExpiredEntry(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	jti := "short-lived-jti"
	err := bl.AddToBlacklist(ctx, jti, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	blacklisted, err := bl.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, blacklisted, "expired blacklist entry should no longer block the token")
}

func TestInMemoryTokenBlacklist_ActorInvalidation(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	actorID := "actor-123"
	issuedBefore := time.Now()

	invalidated, err := bl.IsActorTokenInvalidated(ctx, actorID, issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalidated, "no invalidation recorded yet")

	err = bl.AddActorTokensToBlacklist(ctx, actorID, 1*time.Hour)
	require.NoError(t, err)

	invalidated, err = bl.IsActorTokenInvalidated(ctx, actorID, issuedBefore)
	require.NoError(t, err)
	assert.True(t, invalidated, "token issued before the invalidation should be rejected")

	issuedAfter := time.Now().Add(1 * time.Second)
	invalidated, err = bl.IsActorTokenInvalidated(ctx, actorID, issuedAfter)
	require.NoError(t, err)
	assert.False(t, invalidated, "token issued after the invalidation stays valid")
}

func TestInMemoryTokenBlacklist_ActorsAreIndependent(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	issued := time.Now()

	err := bl.AddActorTokensToBlacklist(ctx, "actor-a", 1*time.Hour)
	require.NoError(t, err)

	invalidated, err := bl.IsActorTokenInvalidated(ctx, "actor-b", issued)
	require.NoError(t, err)
	assert.False(t, invalidated, "revoking one actor must not touch another")
}

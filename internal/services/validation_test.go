package services

import (
	"context"
	"testing"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIsValidMobileNumber(t *testing.T) {
	valid := []string{"01711111111", "01311111111", "01911111111", "8801711111111", "+8801711111111", " 01811111111 "}
	for _, n := range valid {
		assert.True(t, IsValidMobileNumber(n), n)
	}
	invalid := []string{"", "0171111111", "017111111111", "01211111111", "+01711111111x", "8801211111111", "abc"}
	for _, n := range invalid {
		assert.False(t, IsValidMobileNumber(n), n)
	}
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "C1234567", NormalizeTransactionID("  c1234567\t"))
	assert.True(t, IsValidTransactionID("C1234567"))
	assert.True(t, IsValidTransactionID("ABCDEF"))
	assert.False(t, IsValidTransactionID("ABCDE"))
	assert.False(t, IsValidTransactionID("1ABCDEF"))
	assert.False(t, IsValidTransactionID("abcdefg"))
}

func TestRoleAuthorizer(t *testing.T) {
	ctx := context.Background()
	var auth RoleAuthorizer

	assert.ErrorIs(t, auth.Authorize(ctx, nil, ActionApprovePayment), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authorize(ctx, &models.Actor{}, ActionApprovePayment), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authorize(ctx, &models.Actor{ID: "u1", Role: "user"}, ActionRejectPayment), ErrForbidden)
	assert.NoError(t, auth.Authorize(ctx, testAdmin, ActionApprovePayment))
	assert.NoError(t, AllowAllAuthorizer{}.Authorize(ctx, nil, ActionApprovePayment))
}

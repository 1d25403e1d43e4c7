package payment_test

import (
	"context"
	"strings"
	"testing"

	"app/internal/infra/payment"

	"github.com/stretchr/testify/assert"
)

func TestStubGateway_CreateIntent(t *testing.T) {
	g := payment.NewStubGateway()

	intent, err := g.CreateIntent(context.Background(), 1000, "usd")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.ID, "pi_test_"))
	assert.NotEmpty(t, intent.ClientSecret)

	// 発行ごとに別ハンドル
	intent2, err := g.CreateIntent(context.Background(), 1000, "usd")
	assert.NoError(t, err)
	assert.NotEqual(t, intent.ID, intent2.ID)
}

func TestStubGateway_Verify(t *testing.T) {
	ctx := context.Background()
	g := payment.NewStubGateway()

	intent, err := g.CreateIntent(ctx, 1000, "usd")
	assert.NoError(t, err)

	ok, err := g.Verify(ctx, intent.ID)
	assert.NoError(t, err)
	assert.True(t, ok)

	// 自分が発行していないハンドルは受け付けない
	ok, err = g.Verify(ctx, "pi_test_unknown")
	assert.NoError(t, err)
	assert.False(t, ok)
}

package payment

import (
	"context"
	"strings"
	"sync"

	"app/internal/usecase"

	"github.com/google/uuid"
)

// StubGateway は決済ゲートウェイのスタブ実装。
// 本物のSDK連携はスコープ外なので、発行したハンドルを覚えておいて
// Verify では「このプロセスが発行したものか」だけを見る。
type StubGateway struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

func NewStubGateway() *StubGateway {
	return &StubGateway{issued: map[string]struct{}{}}
}

func (g *StubGateway) CreateIntent(ctx context.Context, amount int64, currency string) (usecase.PaymentIntent, error) {
	id := "pi_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	secret := id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	g.mu.Lock()
	g.issued[id] = struct{}{}
	g.mu.Unlock()

	return usecase.PaymentIntent{
		ID:           id,
		ClientSecret: secret,
	}, nil
}

func (g *StubGateway) Verify(ctx context.Context, paymentRef string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.issued[paymentRef]
	return ok, nil
}

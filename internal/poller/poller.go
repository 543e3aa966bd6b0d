// Package poller consumes checkout-completed events and clears the
// purchaser's cart, so a finished order never leaves its items behind.
package poller

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartClearer is the slice of the cart service the poller needs.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    *zap.Logger
}

func New(carts CartClearer, log *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "bestea-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consume(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", zap.Error(err))
	}
}

func (p *Poller) consume(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("error reading message", zap.Error(err))
		}
		return
	}
	p.handleMessage(ctx, m.Value)
}

func (p *Poller) handleMessage(ctx context.Context, value []byte) {
	var payload map[string]interface{}
	if err := json.Unmarshal(value, &payload); err != nil {
		p.log.Error("error parsing message", zap.Error(err))
		return
	}
	userID, ok := payload["user_id"].(string)
	if !ok || userID == "" {
		p.log.Warn("missing or invalid user_id")
		return
	}

	if err := p.carts.ClearCart(ctx, userID); err != nil {
		p.log.Error("failed to clear cart", zap.String("user_id", userID), zap.Error(err))
	}
}

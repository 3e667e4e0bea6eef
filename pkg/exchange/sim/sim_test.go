package sim

import (
	"context"
	"strings"
	"testing"
)

func TestBuyFillsAndDebitsBalance(t *testing.T) {
	e := New(Config{InitialBalance: 1000, FeeRate: 0.001})

	r, err := e.PlaceBuyOrder(context.Background(), "BTC/USD", 1, 500)
	if err != nil {
		t.Fatalf("PlaceBuyOrder: %v", err)
	}
	if !r.Success {
		t.Fatalf("buy rejected: %s", r.Reason)
	}
	if r.OrderID == "" {
		t.Fatal("missing order id")
	}
	if r.FilledQuantity != 1 || r.ExecutionPrice != 500 {
		t.Fatalf("unexpected fill %+v", r)
	}

	wantBalance := 1000 - 500 - 500*0.001
	if got := e.Balance(); got != wantBalance {
		t.Fatalf("balance = %v, want %v", got, wantBalance)
	}
	if qty, entry := e.Position("BTC/USD"); qty != 1 || entry != 500 {
		t.Fatalf("position = %v @ %v", qty, entry)
	}
}

func TestBuyRejectedOnInsufficientBalance(t *testing.T) {
	e := New(Config{InitialBalance: 100})

	r, err := e.PlaceBuyOrder(context.Background(), "BTC/USD", 1, 500)
	if err != nil {
		t.Fatalf("PlaceBuyOrder: %v", err)
	}
	if r.Success {
		t.Fatal("underfunded buy filled")
	}
	if !strings.Contains(r.Reason, "insufficient balance") {
		t.Fatalf("reason = %q", r.Reason)
	}
	if e.Balance() != 100 {
		t.Fatalf("balance mutated on rejection: %v", e.Balance())
	}
}

func TestSellCreditsBalance(t *testing.T) {
	e := New(Config{InitialBalance: 1000})

	if _, err := e.PlaceBuyOrder(context.Background(), "BTC/USD", 2, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	r, err := e.PlaceSellOrder(context.Background(), "BTC/USD", 1, 120)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !r.Success {
		t.Fatalf("sell rejected: %s", r.Reason)
	}
	if got := e.Balance(); got != 1000-200+120 {
		t.Fatalf("balance = %v, want %v", got, 1000-200+120)
	}
	if qty, _ := e.Position("BTC/USD"); qty != 1 {
		t.Fatalf("position qty = %v, want 1", qty)
	}
}

func TestSlippageMovesAgainstTaker(t *testing.T) {
	e := New(Config{InitialBalance: 100000, SlippageBps: 50})
	e.SetSeed(42)

	buy, err := e.PlaceBuyOrder(context.Background(), "BTC/USD", 0.1, 50000)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if buy.ExecutionPrice < 50000 {
		t.Fatalf("buy slippage improved price: %v", buy.ExecutionPrice)
	}

	sell, err := e.PlaceSellOrder(context.Background(), "BTC/USD", 0.1, 50000)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sell.ExecutionPrice > 50000 {
		t.Fatalf("sell slippage improved price: %v", sell.ExecutionPrice)
	}
}

func TestRejectsNonPositiveAmount(t *testing.T) {
	e := New(Config{InitialBalance: 1000})
	if _, err := e.PlaceBuyOrder(context.Background(), "BTC/USD", 0, 100); err == nil {
		t.Fatal("zero amount accepted")
	}
	if _, err := e.PlaceSellOrder(context.Background(), "BTC/USD", -1, 100); err == nil {
		t.Fatal("negative amount accepted")
	}
}

func TestContextCancellationDuringLatency(t *testing.T) {
	e := New(Config{InitialBalance: 1000, GatewayLatencyMinMs: 200, GatewayLatencyMaxMs: 200})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.PlaceBuyOrder(ctx, "BTC/USD", 1, 10); err == nil {
		t.Fatal("cancelled context did not abort order")
	}
}

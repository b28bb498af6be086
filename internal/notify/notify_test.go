package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Dev72112/xlamaexchange/internal/orders"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	n.Notify(context.Background(), Event{
		OrderID: "abc",
		Pair:    "WETH/USDC",
		Status:  orders.StatusTriggered,
		Reason:  orders.ReasonTakeProfit,
		Price:   3600,
	})
	out := buf.String()
	for _, want := range []string{"order_id=abc", "pair=WETH/USDC", "reason=take-profit"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestMultiFansOut(t *testing.T) {
	var first, second bytes.Buffer
	m := Multi{
		NewLogNotifier(slog.New(slog.NewTextHandler(&first, nil))),
		NewLogNotifier(slog.New(slog.NewTextHandler(&second, nil))),
	}
	m.Notify(context.Background(), Event{OrderID: "xyz", Status: orders.StatusExpired})
	if !strings.Contains(first.String(), "xyz") || !strings.Contains(second.String(), "xyz") {
		t.Error("both sinks must receive the event")
	}
}

func TestTelegramDisabledWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewTelegramNotifier("", "", slog.New(slog.NewTextHandler(&buf, nil)))
	if err != nil {
		t.Fatalf("NewTelegramNotifier: %v", err)
	}
	// Must not panic or touch the network.
	n.Notify(context.Background(), Event{OrderID: "abc", Status: orders.StatusTriggered})
	if !strings.Contains(buf.String(), "abc") {
		t.Error("disabled notifier should log the dropped event")
	}
}

func TestTelegramRejectsBadChatID(t *testing.T) {
	if _, err := NewTelegramNotifier("token", "not-a-number", slog.Default()); err == nil {
		t.Fatal("expected error for unparseable chat id")
	}
}

func TestFormatEvent(t *testing.T) {
	got := formatEvent(Event{OrderID: "o1", Pair: "WETH/USDC", Status: orders.StatusTriggered, Reason: orders.ReasonStopLoss, Price: 2900})
	for _, want := range []string{"Order Triggered", "o1", "WETH/USDC", "stop-loss", "2900"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted event missing %q: %s", want, got)
		}
	}
	if !strings.Contains(formatEvent(Event{Status: orders.StatusExpired}), "Order Expired") {
		t.Error("expired events need their own title")
	}
}

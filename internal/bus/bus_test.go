package bus

import (
	"context"
	"testing"
)

func TestNavToken_RoundTrip(t *testing.T) {
	for _, page := range []int{1, 2, 99} {
		got, ok := ParseNavToken(NavToken(page))
		if !ok || got != page {
			t.Errorf("ParseNavToken(NavToken(%d)) = %d, %v", page, got, ok)
		}
	}
}

func TestParseNavToken_Malformed(t *testing.T) {
	for _, data := range []string{"", "pg", "pg|", "pg|x", "xx|2", "pg2", "|2"} {
		if _, ok := ParseNavToken(data); ok {
			t.Errorf("ParseNavToken(%q) accepted", data)
		}
	}
	if page, ok := ParseNavToken("pg|-3"); !ok || page != -3 {
		t.Errorf("negative page should parse and be clamped later, got %d %v", page, ok)
	}
}

func TestNav_Empty(t *testing.T) {
	if !(Nav{}).Empty() {
		t.Error("zero Nav should be empty")
	}
	if (Nav{Next: 2}).Empty() {
		t.Error("Nav with next should not be empty")
	}
}

func TestMessageBus_Publish(t *testing.T) {
	b := NewMessageBus(1)
	ev := InboundEvent{Channel: "telegram", ChatID: "1", Kind: KindStart}
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	got := <-b.Inbound
	if got.SessionKey() != "telegram:1" {
		t.Errorf("SessionKey = %q", got.SessionKey())
	}

	b.Inbound <- ev
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Publish(ctx, ev); err == nil {
		t.Error("expected error when bus is full and ctx is done")
	}
}

package strategy

import (
	"strings"
	"testing"
)

func TestNewTradeID(t *testing.T) {
	a := NewTradeID("FUN/USDT")
	b := NewTradeID("FUN/USDT")
	if !strings.HasPrefix(a, "FUN/USDT_") {
		t.Fatalf("trade ID %q should carry the pair prefix", a)
	}
	if a == b {
		t.Fatalf("consecutive trade IDs must differ, got %q twice", a)
	}
	if a >= b {
		t.Fatalf("trade IDs should sort by generation order: %q >= %q", a, b)
	}
	if len(a) != len("FUN/USDT_")+26 {
		t.Fatalf("unexpected trade ID length: %q", a)
	}
}

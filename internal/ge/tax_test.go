package ge

import "testing"

func TestTax(t *testing.T) {
	tests := []struct {
		price int64
		want  int64
	}{
		{0, 0},
		{-10, 0},
		{49, 0},
		{50, 1},
		{99, 1},
		{1000, 20},
		{1_234_567, 24_691},
		{250_000_000, 5_000_000},
		{249_999_999, 4_999_999},
		{2_147_483_647, 5_000_000},
	}
	for _, tt := range tests {
		if got := Tax(tt.price); got != tt.want {
			t.Errorf("Tax(%d) = %d, want %d", tt.price, got, tt.want)
		}
	}
}

func TestTaxMatchesFloorOfTwoPercent(t *testing.T) {
	for p := int64(0); p < 100_000; p += 37 {
		want := p / 50
		if want > TaxCap {
			want = TaxCap
		}
		if got := Tax(p); got != want {
			t.Fatalf("Tax(%d) = %d, want %d", p, got, want)
		}
	}
}

func TestNetMargin(t *testing.T) {
	if got := NetMargin(1000, 900); got != 80 {
		t.Errorf("NetMargin(1000, 900) = %d, want 80", got)
	}
	if got := NetMargin(300_000_000, 290_000_000); got != 5_000_000 {
		t.Errorf("NetMargin with capped tax = %d, want 5000000", got)
	}
}

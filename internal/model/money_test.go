package model

import (
	"math"
	"testing"
)

func TestMoney_MulShares_ExactArithmetic(t *testing.T) {
	tests := []struct {
		name          string
		pricePerShare Money
		shares        int
		want          Money
	}{
		{name: "1株", pricePerShare: 100, shares: 1, want: 100},
		{name: "複数株", pricePerShare: 100, shares: 2, want: 200},
		{name: "端数を含む価格", pricePerShare: 333, shares: 3, want: 999},
		{name: "大きな金額", pricePerShare: 999999, shares: 1000, want: 999999000},
		{name: "ゼロ株", pricePerShare: 100, shares: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.pricePerShare.MulShares(tt.shares)
			if !ok {
				t.Fatalf("MulShares(%d) reported overflow for in-range product", tt.shares)
			}
			if got != tt.want {
				t.Errorf("MulShares(%d) = %d, want %d", tt.shares, got, tt.want)
			}
		})
	}
}

func TestMoney_MulShares_InvariantHolds(t *testing.T) {
	// shares × pricePerShare == totalAmount がセント単位で厳密に成立すること
	price := Money(12345) // $123.45
	shares := 7
	total, ok := price.MulShares(shares)

	if !ok {
		t.Fatal("MulShares reported overflow for in-range product")
	}
	if int64(total) != int64(price)*int64(shares) {
		t.Errorf("total = %d, want %d", total, int64(price)*int64(shares))
	}
}

func TestMoney_MulShares_OverflowDetected(t *testing.T) {
	// 個別のバリデーションをすべて通過する値同士でも、
	// 積がint64を超える組み合わせはok=falseで拒否されること。
	// ラップした積（負値または誤った正値）を返してはならない。
	tests := []struct {
		name          string
		pricePerShare Money
		shares        int
	}{
		{name: "負にラップする積", pricePerShare: 92233720368, shares: 2000000000},
		{name: "上限ちょうどを超える積", pricePerShare: math.MaxInt64/2 + 1, shares: 2},
		{name: "最大値同士", pricePerShare: math.MaxInt64, shares: math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.pricePerShare.MulShares(tt.shares)
			if ok {
				t.Fatalf("MulShares(%d) = %d, want overflow detection", tt.shares, got)
			}
			if got != 0 {
				t.Errorf("overflowed product = %d, want 0", got)
			}
		})
	}
}

func TestMoney_MulShares_MaxInRange(t *testing.T) {
	// int64上限ちょうどの積は正常に計算できること（境界値）
	price := Money(math.MaxInt64 / 3)
	total, ok := price.MulShares(3)

	if !ok {
		t.Fatal("MulShares reported overflow for in-range product")
	}
	if int64(total) != int64(price)*3 {
		t.Errorf("total = %d, want %d", total, int64(price)*3)
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		amount Money
		want   string
	}{
		{amount: 0, want: "$0.00"},
		{amount: 1, want: "$0.01"},
		{amount: 100, want: "$1.00"},
		{amount: 1234, want: "$12.34"},
		{amount: -1234, want: "-$12.34"},
		{amount: 100000000, want: "$1000000.00"},
	}

	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.amount), got, tt.want)
		}
	}
}

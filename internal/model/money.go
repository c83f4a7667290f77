// Package model はドメインモデルを定義する。
package model

import "fmt"

// Money は金額をセント単位の整数で表す。
// 浮動小数点の丸め誤差を避けるため、全レイヤーでセント単位のまま扱う。
// 表示用のドル変換はプレゼンテーション層の責務とする。
type Money int64

// MulShares は1株あたりの価格に株数を乗じた合計金額を返す。
// 整数演算のみで行うため、shares × pricePerShare は常に厳密に一致する。
// int64の範囲を超える積はok=falseを返し、ラップした値を台帳に載せない。
func (m Money) MulShares(shares int) (total Money, ok bool) {
	if shares < 0 {
		return 0, false
	}
	if m == 0 || shares == 0 {
		return 0, true
	}
	total = m * Money(shares)
	if total/Money(shares) != m {
		return 0, false
	}
	return total, true
}

// String は"$12.34"形式の文字列表現を返す。ログおよびデバッグ用。
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

package promotion

import "math"

const basisPoints = 10000

// ComputeDiscount 按折扣率计算优惠金额与应付金额
// 折扣率先换算为基点（0.01%），优惠金额用整数四舍五入（远离零），折扣率限制在 [0, 100]
func ComputeDiscount(amount int64, rate float64) (discount, final int64) {
	if amount <= 0 {
		return 0, amount
	}
	switch {
	case rate <= 0 || math.IsNaN(rate):
		return 0, amount
	case rate > 100:
		rate = 100
	}
	bp := int64(math.Round(rate * 100))
	// 拆成整万与余数，避免 amount*bp 溢出
	q, r := amount/basisPoints, amount%basisPoints
	discount = q*bp + (r*bp+basisPoints/2)/basisPoints
	if discount > amount {
		discount = amount
	}
	return discount, amount - discount
}

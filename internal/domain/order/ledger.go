package order

// The payment ledger keeps two invariants on every order:
//
//	0 <= PaidAmount <= TotalAmount
//	PaymentStatus == PaymentStatusFor(PaidAmount, TotalAmount)
//
// PaymentStatus is never stored independently of the amounts.

// PaymentStatusFor derives the payment status from the amounts. A zero-total
// order is pending even when fully "paid".
func PaymentStatusFor(paid, total int64) PaymentStatus {
	switch {
	case total > 0 && paid == total:
		return PaymentPaid
	case paid > 0 && paid < total:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// ClampPayment forces amount into [0, total]. Out-of-range amounts are
// clamped rather than rejected; a lower amount than previously recorded is
// applied as-is, there is no refund bookkeeping.
func ClampPayment(amount, total int64) int64 {
	if amount < 0 {
		return 0
	}
	if amount > total {
		return total
	}
	return amount
}

// ApplyPayment sets the order's paid amount to the clamped value, derives
// the payment status, and records the method when given.
func ApplyPayment(o *Order, amount int64, method *string) {
	o.PaidAmount = ClampPayment(amount, o.TotalAmount)
	o.PaymentStatus = PaymentStatusFor(o.PaidAmount, o.TotalAmount)
	if method != nil {
		o.PaymentMethod = method
	}
}

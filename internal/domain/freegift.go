package domain

// FreeGiftRule configures the complimentary line item appended to qualifying
// carts: the gift product and the minimum subtotal (satang) that earns it.
type FreeGiftRule struct {
	ProductID   uint
	MinSubtotal int64
}

// Enabled reports whether the rule can apply at all.
func (r FreeGiftRule) Enabled() bool {
	return r.ProductID != 0 && r.MinSubtotal > 0
}

// GiftSubtotal sums the cart excluding the gift product itself, so a
// previously appended gift line never helps the cart re-qualify.
func (r FreeGiftRule) GiftSubtotal(lines []CartLine) int64 {
	var subtotal int64
	for _, line := range lines {
		if line.ProductID == r.ProductID {
			continue
		}
		subtotal += line.LineTotal()
	}
	return subtotal
}

// Apply returns the cart with the gift line appended, removed, or normalised
// according to the subtotal threshold. It never mutates its input and is
// idempotent: Apply(Apply(x)) == Apply(x).
//
// Clients may submit a tampered gift line (wrong quantity or a non-zero
// price); qualifying carts get the line forced back to quantity 1, price 0.
func (r FreeGiftRule) Apply(lines []CartLine) []CartLine {
	if !r.Enabled() {
		out := make([]CartLine, len(lines))
		copy(out, lines)
		return out
	}

	qualifies := r.GiftSubtotal(lines) >= r.MinSubtotal

	out := make([]CartLine, 0, len(lines)+1)
	giftSeen := false
	for _, line := range lines {
		if line.ProductID != r.ProductID {
			out = append(out, line)
			continue
		}
		if !qualifies || giftSeen {
			continue
		}
		giftSeen = true
		out = append(out, CartLine{ProductID: r.ProductID, Quantity: 1, UnitPrice: 0})
	}
	if qualifies && !giftSeen {
		out = append(out, CartLine{ProductID: r.ProductID, Quantity: 1, UnitPrice: 0})
	}
	return out
}

package pricing

// FeePercent returns the gateway intermediation fee for an installment count,
// following the acquirer's published step table for online card charges.
func FeePercent(installments int) float64 {
	switch {
	case installments == 1:
		return 2.99
	case installments >= 2 && installments <= 6:
		return 3.49
	case installments >= 7 && installments <= 12:
		return 3.99
	case installments >= 13 && installments <= 21:
		return 4.29
	default:
		return 0
	}
}

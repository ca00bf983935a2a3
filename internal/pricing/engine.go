package pricing

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrInvalidInstallmentCount is returned for installment counts below 1.
	ErrInvalidInstallmentCount = errors.New("installment count must be at least 1")
	// ErrFeeOverflow is returned when the combined fee rate reaches 100% and
	// the reverse equation has no solution.
	ErrFeeOverflow = errors.New("combined fee rate reaches or exceeds 100%")
)

// Option is one entry of the installment ladder.
type Option struct {
	Installments    int     `json:"installment"`
	PerValueCents   int64   `json:"value"`
	GrossTotalCents int64   `json:"total"`
	FeePercent      float64 `json:"fee"`
	FeeAmountCents  int64   `json:"feeAmount"`
	Label           string  `json:"label"`
}

// Engine solves the reverse fee equation: given the net amount the merchant
// must receive, it computes the gross amount to charge the payer so that the
// gateway's percentage cut, the per-transaction fixed fee and the linear
// anticipation cost all come out of the surplus.
type Engine struct {
	FixedFeeCents       int64
	AnticipationBps     int
	MinInstallmentCents int64
	MaxInstallments     int
}

// NewEngine returns an engine with the deployed fee parameters: 49-cent
// fixed fee, 1.6% anticipation per installment, R$5,00 installment floor,
// up to 21 installments.
func NewEngine() *Engine {
	return &Engine{
		FixedFeeCents:       49,
		AnticipationBps:     160,
		MinInstallmentCents: 500,
		MaxInstallments:     21,
	}
}

// TotalRate returns the combined percentage rate for an installment count.
func (e *Engine) TotalRate(installments int) float64 {
	return FeePercent(installments)/100 + float64(e.AnticipationBps)/10000*float64(installments)
}

// ReverseTotal computes the gross charge in cents for a target net amount.
//
//	gross = (target + fixedFee) / (1 - totalRate)
//
// Money stays in integer cents except inside the formula evaluation; the
// result is rounded half away from zero.
func (e *Engine) ReverseTotal(targetNetCents int64, installments int) (int64, error) {
	if installments < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidInstallmentCount, installments)
	}
	totalRate := e.TotalRate(installments)
	if totalRate >= 1 {
		return 0, fmt.Errorf("%w: rate %.4f at %d installments", ErrFeeOverflow, totalRate, installments)
	}
	target := float64(targetNetCents) / 100
	fixed := float64(e.FixedFeeCents) / 100
	gross := (target + fixed) / (1 - totalRate)
	return int64(math.Round(gross * 100)), nil
}

// Ladder produces installment options from 1 up to maxInstallments in
// ascending order, skipping entries whose per-installment value falls below
// the configured floor. A non-positive maxInstallments falls back to the
// engine's own ceiling.
func (e *Engine) Ladder(targetNetCents int64, maxInstallments int) ([]Option, error) {
	ceiling := maxInstallments
	if ceiling <= 0 || ceiling > e.MaxInstallments {
		ceiling = e.MaxInstallments
	}
	options := make([]Option, 0, ceiling)
	for n := 1; n <= ceiling; n++ {
		gross, err := e.ReverseTotal(targetNetCents, n)
		if err != nil {
			return nil, err
		}
		per := int64(math.Round(float64(gross) / float64(n)))
		if per < e.MinInstallmentCents {
			continue
		}
		options = append(options, Option{
			Installments:    n,
			PerValueCents:   per,
			GrossTotalCents: gross,
			FeePercent:      FeePercent(n),
			FeeAmountCents:  gross - targetNetCents,
			Label:           ladderLabel(n, per, gross),
		})
	}
	return options, nil
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

func ladderLabel(n int, perCents, totalCents int64) string {
	return brl.Sprintf("%dx de R$ %.2f (Total: R$ %.2f)",
		n, float64(perCents)/100, float64(totalCents)/100)
}

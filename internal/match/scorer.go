// Package match scores counterpart candidates for reconciliation. The score
// is the sum of three independent signals: amount proximity, date proximity,
// and description hits.
package match

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"beleg/internal/model"
)

// Candidate is a scored counterpart document.
type Candidate struct {
	Document model.Document
	Score    int
}

// Scorer ranks counterpart candidates for a document.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the match score of a candidate against the target document.
func (s *Scorer) Score(target, candidate *model.Document) int {
	return amountScore(target.Amount, candidate.Amount) +
		dateScore(target.Date, candidate.Date) +
		descriptionScore(target, candidate)
}

// Rank scores each candidate against the target, orders by score descending,
// and truncates to limit. Candidates arrive in insertion order, which the
// stable sort preserves among equal scores. Zero-score candidates are kept so
// the caller always sees up to limit options.
func (s *Scorer) Rank(target *model.Document, candidates []model.Document, limit int) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, Candidate{Document: c, Score: s.Score(target, &c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

var hundred = decimal.NewFromInt(100)

// amountScore bands the percentage difference between the absolute amounts,
// relative to the target. Signs differ between invoices and debits, so
// magnitude is what matters.
func amountScore(target, candidate decimal.Decimal) int {
	ta, ca := target.Abs(), candidate.Abs()
	if ta.IsZero() {
		if ca.IsZero() {
			return 100
		}
		return 0
	}
	pct := ca.Sub(ta).Abs().Div(ta).Mul(hundred)
	switch {
	case pct.IsZero():
		return 100
	case pct.LessThanOrEqual(decimal.NewFromInt(10)):
		return 90
	case pct.LessThanOrEqual(decimal.NewFromInt(20)):
		return 80
	case pct.LessThanOrEqual(decimal.NewFromInt(30)):
		return 70
	case pct.LessThanOrEqual(decimal.NewFromInt(40)):
		return 60
	case pct.LessThanOrEqual(decimal.NewFromInt(50)):
		return 50
	case pct.LessThanOrEqual(decimal.NewFromInt(75)):
		return 25
	case pct.LessThanOrEqual(hundred):
		return 10
	default:
		return 0
	}
}

// dateScore bands the signed day distance from the target date to the
// candidate date.
func dateScore(target, candidate *time.Time) int {
	if target == nil || candidate == nil {
		return 0
	}
	days := daysBetween(*target, *candidate)
	switch {
	case days < -5 || days > 40:
		return 0
	case days >= -2 && days <= 5:
		return 100
	case days >= -3 && days <= 10:
		return 80
	case days >= -4 && days <= 20:
		return 60
	default:
		return 40
	}
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// descriptionScore checks the bank transaction's remittance text for traces
// of the invoice: its number, the sender's name, and the literal amount.
// Whichever side of the pair is the invoice contributes the fields; the other
// side contributes the text.
func descriptionScore(a, b *model.Document) int {
	invoice, transaction := a, b
	if a.Type != model.TypeInvoice {
		invoice, transaction = b, a
	}
	desc := strings.ToLower(transaction.Description)
	if desc == "" {
		return 0
	}
	score := 0
	if invoice.Number != "" && strings.Contains(desc, strings.ToLower(invoice.Number)) {
		score += 30
	}
	if invoice.SenderName != "" && strings.Contains(desc, strings.ToLower(invoice.SenderName)) {
		score += 75
	}
	if !invoice.Amount.IsZero() && strings.Contains(desc, invoice.Amount.Abs().StringFixed(2)) {
		score += 30
	}
	return score
}

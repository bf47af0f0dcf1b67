package contact

import (
	"time"

	"github.com/shopspring/decimal"
)

var warmthDonationCap = decimal.NewFromInt(1000)

// ComputeWarmth scores a relationship from 0 to 100: up to 60 points for outreach
// recency (decaying to zero after a year) and up to 40 points for lifetime giving
// (saturating at 1000).
func ComputeWarmth(now time.Time, lastOutreach *time.Time, total decimal.Decimal) int {
	score := 0
	if lastOutreach != nil {
		days := int(now.Sub(*lastOutreach).Hours() / 24)
		if days < 0 {
			days = 0
		}
		if days < 365 {
			score += 60 * (365 - days) / 365
		}
	}
	if total.IsPositive() {
		capped := decimal.Min(total, warmthDonationCap)
		score += int(capped.Mul(decimal.NewFromInt(40)).Div(warmthDonationCap).IntPart())
	}
	if score > 100 {
		score = 100
	}
	return score
}

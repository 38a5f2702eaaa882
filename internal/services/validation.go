package services

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places an amount may carry.
const MoneyScale = 2

// MaxAmount bounds any single amount or order total.
var MaxAmount = decimal.New(1, 12)

var (
	// 01[3-9]XXXXXXXX locally, 8801[3-9]XXXXXXXX internationally, optional '+'.
	mobileNumberPattern  = regexp.MustCompile(`^\+?(?:88)?01[3-9]\d{8}$`)
	transactionIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{5,}$`)
)

// NormalizeTransactionID trims and uppercases a bKash transaction id.
func NormalizeTransactionID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IsValidMobileNumber reports whether n looks like a Bangladeshi mobile number.
func IsValidMobileNumber(n string) bool {
	return mobileNumberPattern.MatchString(strings.TrimSpace(n))
}

// IsValidTransactionID expects an already normalized id.
func IsValidTransactionID(id string) bool {
	return transactionIDPattern.MatchString(id)
}

// checkMoney validates a positive amount in taka and poisha.
func checkMoney(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return invalid(field, "%s must be greater than 0", field)
	}
	if !d.Round(MoneyScale).Equal(d) {
		return invalid(field, "%s must have at most %d decimal places", field, MoneyScale)
	}
	if d.GreaterThan(MaxAmount) {
		return invalid(field, "%s must not exceed %s", field, MaxAmount.String())
	}
	return nil
}

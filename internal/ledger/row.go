package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"caja/internal/core"
)

const dateLayout = "2006-01-02"

// EncodeRow serializes a movement to the five-column string row. Paid is
// written as the literal "True"/"False" the legacy store expects.
func EncodeRow(m core.Movement) []string {
	return []string{
		m.Date.Format(dateLayout),
		m.Time,
		m.Counterparty,
		m.Amount.String(),
		EncodePaid(m.Paid),
	}
}

// EncodePaid returns the store literal for the paid flag.
func EncodePaid(paid bool) string {
	if paid {
		return "True"
	}
	return "False"
}

// EncodeCell serializes one column of a movement, for UpdateCell calls.
func EncodeCell(m core.Movement, col Column) string {
	switch col {
	case ColDate:
		return m.Date.Format(dateLayout)
	case ColTime:
		return m.Time
	case ColCounterparty:
		return m.Counterparty
	case ColAmount:
		return m.Amount.String()
	case ColPaid:
		return EncodePaid(m.Paid)
	}
	return ""
}

// DecodeRow parses a raw row into a movement, assigning a fresh in-memory
// ID. It returns false for rows that do not carry a parseable date and
// amount (headers, blanks, manual edits); such rows are skipped upstream.
func DecodeRow(cols []string, loc *time.Location) (core.Movement, bool) {
	if len(cols) < 4 {
		return core.Movement{}, false
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(cols[0]), loc)
	if err != nil {
		return core.Movement{}, false
	}
	amount, err := decimal.NewFromString(normalizeNumber(cols[3]))
	if err != nil {
		return core.Movement{}, false
	}
	paid := false
	if len(cols) >= 5 {
		paid = DecodePaid(cols[4])
	}
	return core.Movement{
		ID:           uuid.New(),
		Date:         date,
		Time:         strings.TrimSpace(cols[1]),
		Counterparty: strings.TrimSpace(cols[2]),
		Amount:       amount,
		Paid:         paid,
	}, true
}

// DecodePaid accepts the legacy spellings of a true paid flag.
func DecodePaid(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "si", "sí", "'true":
		return true
	}
	return false
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	// Sheets may hand back amounts with a decimal comma.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// ToStrings flattens a raw interface row as returned by the Sheets API.
func ToStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

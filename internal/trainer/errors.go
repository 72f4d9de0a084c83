package trainer

import "fmt"

// InsufficientHistory describes a date with fewer than H trading days after
// it for the holding period to complete. Nothing in this package returns
// it: simulateTrade reports that case through its ok result, and the loop
// skips the day and advances normally.
type InsufficientHistory struct {
	Symbol string
	Date   string
}

func (e *InsufficientHistory) Error() string {
	return fmt.Sprintf("trainer: insufficient trading-day history after %s for %s to complete holding period", e.Date, e.Symbol)
}

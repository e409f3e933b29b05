package orders

import "github.com/google/uuid"

type VoidFailure struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// VoidResult reports each order separately; a failure never undoes another order's void
type VoidResult struct {
	Voided  []uuid.UUID   `json:"voided"`
	Skipped []uuid.UUID   `json:"skipped"`
	Failed  []VoidFailure `json:"failed"`
}

func newVoidResult() *VoidResult {
	return &VoidResult{
		Voided:  []uuid.UUID{},
		Skipped: []uuid.UUID{},
		Failed:  []VoidFailure{},
	}
}

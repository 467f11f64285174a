/*
errors.go - Error taxonomy for the ledger core

PURPOSE:
  All error categories in one place. Callers (the API layer, the UI above
  it) only need three questions answered: was this a business-rule
  rejection, a missing record, or a conflict with existing data? Anything
  else is a storage failure and the whole operation was rolled back.

ERROR CATEGORIES:
  1. Rejections  - explicit business-rule checks, nothing was written
  2. Not-found   - a referenced record does not exist
  3. Conflicts   - uniqueness violations mapped by the store
  4. Storage     - everything else; fatal for the operation, retry-able

USAGE:
    if ledger.IsRejection(err) {
        // show err.Error() to the operator, one line
    }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// Business-rule rejections.
	ErrEmptyLines            = errors.New("operation has no line items")
	ErrInvalidLine           = errors.New("line item has non-positive quantity or negative amount")
	ErrLineTotalMismatch     = errors.New("line items do not sum to the stated total")
	ErrCreditNeedsDebtor     = errors.New("credit sale requires a debtor")
	ErrCashHasDebtor         = errors.New("cash sale must not name a debtor")
	ErrPaymentExceedsPending = errors.New("payment exceeds the sale's pending balance")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrDebtorHasBalance      = errors.New("debtor still has a pending balance")
	ErrSaleNotCredit         = errors.New("sale is not a credit sale of this debtor")
	ErrProductNotInSale      = errors.New("product was not part of the original sale")
	ErrReturnQtyExceedsSold  = errors.New("return quantity exceeds quantity sold")
	ErrReturnExceedsSale     = errors.New("cumulative refunds would exceed the sale total")
	ErrSupplierHasProducts   = errors.New("supplier still has products assigned")
	ErrInvalidRole           = errors.New("unknown role")

	// Not-found.
	ErrProductNotFound  = errors.New("product not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrDebtorNotFound   = errors.New("debtor not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrReturnNotFound   = errors.New("return not found")
	ErrClosingNotFound  = errors.New("closing not found")
	ErrUserNotFound     = errors.New("user not found")

	// Conflicts with existing data, mapped from UNIQUE violations.
	ErrDuplicateCode     = errors.New("product code already exists")
	ErrDuplicateName     = errors.New("name already exists")
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrConstraint covers CHECK and foreign-key violations the explicit
	// pre-checks did not catch. The transaction was rolled back whole.
	ErrConstraint = errors.New("constraint violation")
)

// =============================================================================
// REJECTION - typed business-rule failure with a displayable message
// =============================================================================

// Rejection is returned when an operation is refused before any write. The
// message is suitable for a one-line operator-facing display.
type Rejection struct {
	Reason  error
	Message string
}

func (r *Rejection) Error() string { return r.Message }
func (r *Rejection) Unwrap() error { return r.Reason }

func rejectf(reason error, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsRejection reports whether err is a business-rule rejection: nothing was
// written and retrying the same input will fail the same way.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrDebtorNotFound) ||
		errors.Is(err, ErrSupplierNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrPurchaseNotFound) ||
		errors.Is(err, ErrReturnNotFound) ||
		errors.Is(err, ErrClosingNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateUsername)
}

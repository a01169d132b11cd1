package interfaces

import "errors"

// Store-level sentinel errors. The service layer translates these into
// the coordinator error taxonomy; handlers never see them directly.
var (
	// ErrNotFound: the id does not reference any record.
	ErrNotFound = errors.New("record not found")

	// ErrStateConflict: the record exists but its current state does not
	// satisfy the conditional update's precondition (lost race, wrong
	// status, or an assignment already held by someone else).
	ErrStateConflict = errors.New("state precondition failed")

	// ErrDuplicateDriver: an ambulance is already registered for the driver.
	ErrDuplicateDriver = errors.New("ambulance already registered for driver")
)

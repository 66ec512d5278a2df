package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidCompanyName = errors.New("invalid_company_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrNoItems            = errors.New("no_items")
	ErrInvalidItem        = errors.New("invalid_item")
	ErrInvalidTaxRate     = errors.New("invalid_tax_rate")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrStatusTransition   = errors.New("invalid_status_transition")

	// ErrNumberConflict surfaces when the document number allocation
	// still collides after the bounded transaction retries.
	ErrNumberConflict = errors.New("quotation_number_conflict")
)

package core

import "errors"

var (
	// ErrRuleNotFound is returned when a cross-module rule id has no match
	ErrRuleNotFound = errors.New("rule not found")

	// ErrProductNotFound is returned by inventory readers for unknown products
	ErrProductNotFound = errors.New("product not found")

	// ErrCustomerNotFound is returned by customer readers for unknown customers
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrEntityNotFound is returned by reference readers for unknown entities
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownModule is returned when a module name is not on the allow-list
	ErrUnknownModule = errors.New("unknown module")

	// ErrInvalidRule is returned when a rule definition fails validation
	ErrInvalidRule = errors.New("invalid rule")

	// ErrStoreClosed is returned when a store adapter is used after Close
	ErrStoreClosed = errors.New("store is closed")
)

// Package game is the action pipeline: every verb a client (human or agent)
// can perform, validated against ownership, range, professions, cooldowns,
// and on-chain balances, then applied under the owning zone's lock.
package game

import (
	"errors"
	"fmt"
)

// Rule error codes, mapped to HTTP statuses by the API layer.
const (
	CodeInvalid      = "invalid"       // malformed or out-of-range input -> 400
	CodeForbidden    = "forbidden"     // ownership or wallet mismatch -> 403
	CodeNotFound     = "not_found"     // zone/entity/recipe/item -> 404
	CodeRule         = "rule"          // game rule violated -> 400
	CodeCooldown     = "cooldown"      // technique not ready -> 400
	CodeInsufficient = "insufficient"  // balance or materials short -> 400
	CodeLedger       = "ledger_failed" // chain write rejected -> 500
)

// RuleError is a typed action failure. Hints carry structured context the
// client can act on (remaining cooldown, missing materials, required tier).
type RuleError struct {
	Code    string
	Message string
	Hints   map[string]any
}

func (e *RuleError) Error() string { return e.Message }

func errInvalid(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeInvalid, Message: fmt.Sprintf(format, args...)}
}

func errForbidden(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func errRule(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeRule, Message: fmt.Sprintf(format, args...)}
}

func errInsufficient(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeInsufficient, Message: fmt.Sprintf(format, args...)}
}

func errLedger(op string, err error) *RuleError {
	return &RuleError{Code: CodeLedger, Message: fmt.Sprintf("%s: ledger write failed: %v", op, err)}
}

// AsRule unwraps a RuleError from an error chain.
func AsRule(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

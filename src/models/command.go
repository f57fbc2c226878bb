package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MCommandRequest is the body of POST /ai/command.
type MCommandRequest struct {
	Command string `json:"command"`
}

// MCommandResponse is returned by /ai/command and /ai/confirm/{id}.
type MCommandResponse struct {
	Success              bool        `json:"success"`
	Message              string      `json:"message"`
	RequiresConfirmation bool        `json:"requiresConfirmation"`
	ConfirmationID       string      `json:"confirmationId"`
	ConfirmationMessage  string      `json:"confirmationMessage"`
	OrderExecuted        *MOrder     `json:"orderExecuted,omitempty"`
	RuleCreated          *MAgentRule `json:"ruleCreated,omitempty"`
}

// PromptText is the text to show the user for a confirmation.
func (r MCommandResponse) PromptText() string {
	if r.ConfirmationMessage != "" {
		return r.ConfirmationMessage
	}
	return r.Message
}

// MCommandOutcome is the result of a command or of a confirmation. Order and
// Rule are set when the backend executed an order or created a rule.
type MCommandOutcome struct {
	Command        string      `json:"command,omitempty"`
	ConfirmationID string      `json:"confirmation_id,omitempty"`
	Success        bool        `json:"success"`
	Message        string      `json:"message"`
	Order          *MOrder     `json:"order,omitempty"`
	Rule           *MAgentRule `json:"rule,omitempty"`
}

// Outcome builds the outcome of resp.
func (r MCommandResponse) Outcome() MCommandOutcome {
	return MCommandOutcome{
		Success: r.Success,
		Message: r.Message,
		Order:   r.OrderExecuted,
		Rule:    r.RuleCreated,
	}
}

// MAgentRule is a conditional trade rule created by the agent.
type MAgentRule struct {
	ID          int64               `json:"id,omitempty"`
	RuleText    string              `json:"ruleText"`
	Symbol      string              `json:"symbol"`
	Condition   string              `json:"condition"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	Action      string              `json:"action"`
	AmountType  string              `json:"amountType,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
	IsActive    *bool               `json:"isActive,omitempty"`
}

// MCredentials is the body of /auth/login and /auth/signup.
type MCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MLoginResponse carries the bearer token.
type MLoginResponse struct {
	Token string `json:"token"`
}

// MSubmitResult is what a submitted command produced: either an outcome or
// an open confirmation.
type MSubmitResult struct {
	Outcome      *MCommandOutcome `json:"outcome,omitempty"`
	Confirmation *MConfirmation   `json:"confirmation,omitempty"`
}

// Summary is a one-line description of the rule.
func (r MAgentRule) Summary() string {
	s := fmt.Sprintf("rule #%d: %s %s when %s", r.ID, r.Action, r.Symbol, r.Condition)
	if r.TargetPrice.Valid {
		s += " " + r.TargetPrice.Decimal.String()
	}
	return s
}

// Details lists the order and rule attached to the outcome, if any.
func (o MCommandOutcome) Details() []string {
	var out []string
	if o.Order != nil {
		out = append(out, o.Order.Summary())
	}
	if o.Rule != nil {
		out = append(out, o.Rule.Summary())
	}
	return out
}

package model

import (
	"fmt"
	"strings"
)

// AccountType is the role of an authenticated party
type AccountType string

const (
	AccountCustomer   AccountType = "customer"
	AccountAdmin      AccountType = "admin"
	AccountSuperadmin AccountType = "superadmin"
)

// Valid reports whether the account type belongs to the closed vocabulary
func (t AccountType) Valid() bool {
	switch t {
	case AccountCustomer, AccountAdmin, AccountSuperadmin:
		return true
	}
	return false
}

// ParseAccountType normalizes and validates an account type string
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid account type %q", s)
	}
	return t, nil
}

// Identity is an (accountId, accountType) pair. It is a comparable value
// and is used directly as a map key.
type Identity struct {
	AccountID   int64       `json:"accountId"`
	AccountType AccountType `json:"accountType"`
}

// NewIdentity creates a new identity value
func NewIdentity(accountType AccountType, accountID int64) Identity {
	return Identity{AccountID: accountID, AccountType: accountType}
}

// Channel returns the identity channel name
func (i Identity) Channel() string {
	return fmt.Sprintf("user_%s_%d", i.AccountType, i.AccountID)
}

// String implements fmt.Stringer
func (i Identity) String() string {
	return fmt.Sprintf("%s:%d", i.AccountType, i.AccountID)
}

// RoleChannel returns the channel every connection of the given account type joins
func RoleChannel(t AccountType) string {
	return "role_" + string(t)
}

// ConversationChannel builds the conversation channel for a shop/customer/admin triple
func ConversationChannel(shopID, customerID, adminID int64) string {
	return fmt.Sprintf("conversation_%d_%d_%d", shopID, customerID, adminID)
}

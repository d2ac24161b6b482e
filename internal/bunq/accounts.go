package bunq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// accountVariants are the known monetary-account shapes, in priority order.
// Unrecognized shapes are skipped so an unknown subtype never breaks
// discovery of the known ones.
var accountVariants = []string{
	"MonetaryAccountBank",
	"MonetaryAccountSavings",
	"MonetaryAccountJoint",
	"MonetaryAccountCard",
	"MonetaryAccountExternal",
	"MonetaryAccountInvestment",
}

// MonetaryAccount is the normalized shape all account variants map to.
type MonetaryAccount struct {
	Type        string          `json:"type"`
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	IBAN        string          `json:"iban"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
}

type accountWire struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Balance     struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"balance"`
	Alias []aliasWire `json:"alias"`
}

type aliasWire struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name"`
}

// ListMonetaryAccounts fetches and normalizes the remote account list.
func (c *Client) ListMonetaryAccounts(ctx context.Context, s Session) ([]MonetaryAccount, error) {
	path := fmt.Sprintf("/user/%d/monetary-account", s.UserID)
	items, err := c.Do(ctx, "GET", path, nil, s.Token)
	if err != nil {
		return nil, err
	}

	accounts := make([]MonetaryAccount, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, variant := range accountVariants {
			raw, ok := obj[variant]
			if !ok {
				continue
			}
			var w accountWire
			if err := json.Unmarshal(raw, &w); err != nil {
				break
			}
			acc := MonetaryAccount{
				Type:        variant,
				ID:          w.ID,
				Status:      w.Status,
				Description: w.Description,
				Currency:    w.Balance.Currency,
			}
			if bal, err := decimal.NewFromString(w.Balance.Value); err == nil {
				acc.Balance = bal
			}
			for _, a := range w.Alias {
				if a.Type == "IBAN" {
					acc.IBAN = a.Value
					break
				}
			}
			accounts = append(accounts, acc)
			break
		}
	}
	return accounts, nil
}

package bunq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// pageSize is the maximum number of payments requested per page.
	pageSize = 200
	// maxFetch bounds the total backward walk per account, so a pathological
	// history can never keep the pager running.
	maxFetch = 1000
)

// Party identifies one side of a payment.
type Party struct {
	IBAN        string `json:"iban"`
	DisplayName string `json:"display_name"`
}

// Payment is one remote ledger entry. The ID is used only as a pagination
// cursor; it is not stored as a dedup key.
type Payment struct {
	ID           int64
	Amount       decimal.Decimal
	Currency     string
	Created      string // provider timestamp, "2006-01-02 15:04:05.000000"
	Description  string
	Counterparty *Party // counterparty_alias, may be nil
	Alias        *Party // own-side alias, fallback counterparty source
}

type paymentWire struct {
	ID     int64 `json:"id"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Created           string `json:"created"`
	Description       string `json:"description"`
	CounterpartyAlias *Party `json:"counterparty_alias"`
	Alias             *Party `json:"alias"`
}

// Date returns the payment's date component, or ok=false when the provider
// timestamp is malformed.
func (p *Payment) Date() (time.Time, bool) {
	if len(p.Created) < 10 {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", p.Created[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ListPayments fetches one page of up to count payments, newest first,
// optionally older than a given payment id.
func (c *Client) ListPayments(ctx context.Context, s Session, accountID int64, count int, olderThanID int64) ([]Payment, error) {
	path := fmt.Sprintf("/user/%d/monetary-account/%d/payment?count=%d", s.UserID, accountID, count)
	if olderThanID > 0 {
		path += fmt.Sprintf("&older_id=%d", olderThanID)
	}
	items, err := c.Do(ctx, "GET", path, nil, s.Token)
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		raw, ok := obj["Payment"]
		if !ok {
			continue
		}
		var w paymentWire
		if err := json.Unmarshal(raw, &w); err != nil {
			continue
		}
		p := Payment{
			ID:           w.ID,
			Currency:     w.Amount.Currency,
			Created:      w.Created,
			Description:  w.Description,
			Counterparty: w.CounterpartyAlias,
			Alias:        w.Alias,
		}
		if amt, err := decimal.NewFromString(w.Amount.Value); err == nil {
			p.Amount = amt
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// Pager walks an account's payment history backward, lazily, one page per
// Next call. It terminates on an empty page, when the oldest entry of a page
// falls strictly before dateFrom, or at the absolute fetch bound.
type Pager struct {
	c         *Client
	s         Session
	accountID int64
	dateFrom  time.Time

	olderThan int64
	fetched   int
	done      bool
}

// NewPager starts a backward walk bounded by the date watermark.
func (c *Client) NewPager(s Session, accountID int64, dateFrom time.Time) *Pager {
	return &Pager{c: c, s: s, accountID: accountID, dateFrom: dateFrom}
}

// Next returns the next page, newest first, or nil when the walk is done.
// The boundary page may straddle the cutoff; callers filter by date.
func (p *Pager) Next(ctx context.Context) ([]Payment, error) {
	if p.done {
		return nil, nil
	}
	page, err := p.c.ListPayments(ctx, p.s, p.accountID, pageSize, p.olderThan)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		p.done = true
		return nil, nil
	}

	p.fetched += len(page)
	oldest := page[len(page)-1]
	p.olderThan = oldest.ID
	if d, ok := oldest.Date(); ok && d.Before(p.dateFrom) {
		p.done = true
	}
	if p.fetched >= maxFetch {
		p.done = true
	}
	return page, nil
}

// FetchPaymentsSince drains a pager and keeps only payments dated on or
// after dateFrom. Entries with malformed timestamps are kept; the mapper
// falls back to the current date for those.
func (c *Client) FetchPaymentsSince(ctx context.Context, s Session, accountID int64, dateFrom time.Time) ([]Payment, error) {
	pager := c.NewPager(s, accountID, dateFrom)
	var out []Payment
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		for _, p := range page {
			if d, ok := p.Date(); ok && d.Before(dateFrom) {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// fallbackDescription is used when the provider sends a blank description.
const fallbackDescription = "bunq betaling"

// Preferred default category/subcategory names, tried before the loose
// type-based fallback.
const (
	preferredCategoryName       = "Overig"
	preferredIncomeSubcategory  = "Inkomsten overig"
	preferredExpenseSubcategory = "Uitgaven overig"
)

// Category type patterns per direction, in both language conventions.
var (
	incomePatterns  = []string{"%inkomst%", "%income%"}
	expensePatterns = []string{"%uitgav%", "%expense%"}
)

// resolveCategoryDefaults picks the default subcategory per direction, once
// per run.
func (o *Orchestrator) resolveCategoryDefaults(ctx context.Context, householdID uuid.UUID) (model.CategoryDefaults, error) {
	income, err := o.defaultSubcategory(ctx, householdID, preferredIncomeSubcategory, incomePatterns)
	if err != nil {
		return model.CategoryDefaults{}, fmt.Errorf("income default: %w", err)
	}
	expense, err := o.defaultSubcategory(ctx, householdID, preferredExpenseSubcategory, expensePatterns)
	if err != nil {
		return model.CategoryDefaults{}, fmt.Errorf("expense default: %w", err)
	}
	return model.CategoryDefaults{IncomeSubcategoryID: income, ExpenseSubcategoryID: expense}, nil
}

// defaultSubcategory tries the preferred name pair first, then falls back to
// the first subcategory whose parent category type matches by substring.
func (o *Orchestrator) defaultSubcategory(ctx context.Context, householdID uuid.UUID, preferredName string, patterns []string) (uuid.UUID, error) {
	s, err := o.cats.GetSubcategoryByName(ctx, householdID, preferredCategoryName, preferredName)
	if err == nil {
		return s.ID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return uuid.Nil, err
	}

	s, err = o.cats.FirstSubcategoryByCategoryType(ctx, householdID, patterns)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("%w matching %v", errs.ErrNoDefaultCategory, patterns)
		}
		return uuid.Nil, err
	}
	return s.ID, nil
}

// mapPayment converts one remote payment into a transaction candidate.
// Amount sign is preserved; the provider encodes direction in it.
func mapPayment(householdID, accountID uuid.UUID, p bunq.Payment, defaults model.CategoryDefaults) (model.Transaction, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Transaction{}, err
	}

	date, ok := p.Date()
	if !ok {
		now := time.Now().UTC()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	desc := p.Description
	if strings.TrimSpace(desc) == "" {
		desc = fallbackDescription
	}

	party := p.Counterparty
	if party == nil {
		party = p.Alias
	}
	var iban, alias string
	if party != nil {
		iban, alias = party.IBAN, party.DisplayName
	}

	sub := defaults.ExpenseSubcategoryID
	if p.Amount.Sign() >= 0 {
		sub = defaults.IncomeSubcategoryID
	}

	return model.Transaction{
		ID:                id,
		HouseholdID:       householdID,
		AccountID:         accountID,
		Date:              date,
		Description:       desc,
		Amount:            p.Amount,
		CounterpartyIBAN:  iban,
		CounterpartyAlias: alias,
		SubcategoryID:     sub,
	}, nil
}

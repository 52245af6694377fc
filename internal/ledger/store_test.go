package ledger

import (
	"context"
	"fmt"
	"testing"

	"expense_tracker/internal/db"
	"expense_tracker/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var today = domain.Date{}

func init() {
	today, _ = domain.ParseDate("2026-10-19")
}

type StoreSuite struct {
	suite.Suite
	db       *gorm.DB
	expenses *Store[domain.Expense]
	incomes  *Store[domain.Income]
	alice    uint
	bob      uint
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	gdb, err := db.OpenSQLite(":memory:", nil)
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(gdb))
	s.db = gdb
	catalog := NewCatalog([]string{"Food", "Travel", "Rent"}, []string{"Salary", "Gifts"})
	s.expenses = NewExpenses(gdb, catalog)
	s.incomes = NewIncomes(gdb, catalog)
	s.ctx = context.Background()

	for _, name := range []string{"alice", "bob"} {
		u := domain.User{Username: name, Email: name + "@example.com", Password: "x", IsActive: true}
		s.Require().NoError(gdb.Create(&u).Error)
		if name == "alice" {
			s.alice = u.ID
		} else {
			s.bob = u.ID
		}
	}
}

func (s *StoreSuite) addExpense(owner uint, amount, desc, category string, daysAgo int) *domain.Expense {
	e, err := s.expenses.Create(s.ctx, owner, Input{
		Amount:      amount,
		Description: desc,
		Tag:         category,
		Date:        today.AddDays(-daysAgo).String(),
	})
	s.Require().NoError(err)
	return e
}

func (s *StoreSuite) TestCreateValidates() {
	cases := []struct {
		in    Input
		field string
	}{
		{Input{Description: "x", Tag: "Food", Date: "2026-01-01"}, "amount"},
		{Input{Amount: "ten", Description: "x", Tag: "Food", Date: "2026-01-01"}, "amount"},
		{Input{Amount: "10", Tag: "Food", Date: "2026-01-01"}, "description"},
		{Input{Amount: "10", Description: "x", Date: "2026-01-01"}, "tag"},
		{Input{Amount: "10", Description: "x", Tag: "Spaceships", Date: "2026-01-01"}, "tag"},
		{Input{Amount: "10", Description: "x", Tag: "Food"}, "date"},
		{Input{Amount: "10", Description: "x", Tag: "Food", Date: "01/01/2026"}, "date"},
	}
	for _, tc := range cases {
		_, err := s.expenses.Create(s.ctx, s.alice, tc.in)
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal(tc.field, verr.Field)
	}
	n, err := s.expenses.Count(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StoreSuite) TestCreateRejectsAmountsOutsideColumn() {
	cases := map[string]string{
		"0.001":           "Amount must have at most 2 decimal places",
		"1e-2000000000":   "Amount must have at most 2 decimal places",
		"123456789012345": "Amount must have at most 10 digits before the decimal point",
		"1e20000000":      "Amount must have at most 10 digits before the decimal point",
		"0e20000000":      "Amount must have at most 10 digits before the decimal point",
	}
	for amount, msg := range cases {
		_, err := s.expenses.Create(s.ctx, s.alice, Input{Amount: amount, Description: "x", Tag: "Food", Date: "2026-01-01"})
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr, amount)
		s.Equal("amount", verr.Field, amount)
		s.Equal(msg, verr.Message, amount)
	}
	n, err := s.expenses.Count(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Zero(n)

	largest := s.addExpense(s.alice, "9999999999.99", "largest", "Food", 1)
	s.True(decimal.RequireFromString("9999999999.99").Equal(largest.Amount))
	s.addExpense(s.alice, "12e2", "scientific", "Food", 1)
}

func (s *StoreSuite) TestSearchIgnoresAmountsOutsideColumn() {
	s.addExpense(s.alice, "10", "lunch", "Food", 1)
	for _, text := range []string{"1e20000000", "1e-2000000000", "0.001"} {
		rows, err := s.expenses.Search(s.ctx, s.alice, text)
		s.Require().NoError(err, text)
		s.Empty(rows, text)
	}
}

func (s *StoreSuite) TestListPaginatesByFive() {
	for i := 0; i < 12; i++ {
		s.addExpense(s.alice, "1", fmt.Sprintf("item %d", i), "Food", i)
	}
	s.addExpense(s.bob, "1", "bob's", "Food", 0)

	page, err := s.expenses.List(s.ctx, s.alice, 1)
	s.Require().NoError(err)
	s.Len(page.Items, PageSize)
	s.EqualValues(12, page.Total)
	s.Equal(3, page.TotalPages)
	s.Equal("item 0", page.Items[0].Description)
	s.True(page.HasNext)
	s.False(page.HasPrevious)

	page, err = s.expenses.List(s.ctx, s.alice, 99)
	s.Require().NoError(err)
	s.Equal(3, page.Number)
	s.Len(page.Items, 2)
	s.Equal("item 10", page.Items[0].Description)

	page, err = s.expenses.List(s.ctx, s.alice, 0)
	s.Require().NoError(err)
	s.Equal(1, page.Number)
}

func (s *StoreSuite) TestListEmpty() {
	page, err := s.incomes.List(s.ctx, s.alice, 4)
	s.Require().NoError(err)
	s.Equal(1, page.Number)
	s.Equal(1, page.TotalPages)
	s.Empty(page.Items)
}

func (s *StoreSuite) TestSearchNumericMatchesAmount() {
	a := s.addExpense(s.alice, "42", "groceries", "Food", 1)
	b := s.addExpense(s.alice, "42.00", "train", "Travel", 2)
	s.addExpense(s.alice, "41.99", "bus", "Travel", 3)
	s.addExpense(s.bob, "42", "bob's groceries", "Food", 1)

	rows, err := s.expenses.Search(s.ctx, s.alice, "42")
	s.Require().NoError(err)
	ids := []uint{}
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	s.ElementsMatch([]uint{a.ID, b.ID}, ids)
}

func (s *StoreSuite) TestSearchText() {
	a := s.addExpense(s.alice, "5", "Morning COFFEE", "Food", 1)
	b := s.addExpense(s.alice, "20", "taxi", "Travel", 2)
	s.addExpense(s.alice, "900", "flat", "Rent", 3)

	rows, err := s.expenses.Search(s.ctx, s.alice, "coffee")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(a.ID, rows[0].ID)

	rows, err = s.expenses.Search(s.ctx, s.alice, "trav")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(b.ID, rows[0].ID)

	// date prefix
	rows, err = s.expenses.Search(s.ctx, s.alice, today.AddDays(-3).String())
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("flat", rows[0].Description)

	// LIKE wildcards are literal
	rows, err = s.expenses.Search(s.ctx, s.alice, "%")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *StoreSuite) TestSearchIncomeBySource() {
	in, err := s.incomes.Create(s.ctx, s.alice, Input{Amount: "3000", Description: "October", Tag: "Salary", Date: "2026-10-01"})
	s.Require().NoError(err)

	rows, err := s.incomes.Search(s.ctx, s.alice, "sal")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(in.ID, rows[0].ID)
	s.Equal("Salary", rows[0].Source)
}

func (s *StoreSuite) TestSummaryWindow() {
	s.addExpense(s.alice, "10", "lunch", "Food", 10)
	s.addExpense(s.alice, "15", "dinner", "Food", 100)
	s.addExpense(s.alice, "7.5", "bus", "Travel", SummaryWindowDays)
	s.addExpense(s.alice, "99", "old", "Food", 200)
	s.addExpense(s.alice, "500", "old rent", "Rent", 200)
	s.addExpense(s.bob, "1000", "bob", "Food", 1)

	totals, err := s.expenses.Summary(s.ctx, s.alice, today)
	s.Require().NoError(err)
	s.Len(totals, 2)
	s.True(decimal.NewFromInt(25).Equal(totals["Food"]), totals["Food"].String())
	s.True(decimal.RequireFromString("7.5").Equal(totals["Travel"]))
	_, hasRent := totals["Rent"]
	s.False(hasRent)
}

func (s *StoreSuite) TestUpdateAndDeleteAreOwnerScoped() {
	e := s.addExpense(s.alice, "10", "lunch", "Food", 1)

	_, err := s.expenses.Update(s.ctx, s.bob, e.ID, Input{Amount: "1", Description: "hacked", Tag: "Food", Date: "2026-01-01"})
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.expenses.Delete(s.ctx, s.bob, e.ID), ErrNotFound)
	_, err = s.expenses.Get(s.ctx, s.bob, e.ID)
	s.ErrorIs(err, ErrNotFound)

	updated, err := s.expenses.Update(s.ctx, s.alice, e.ID, Input{Amount: "12.5", Description: "brunch", Tag: "Food", Date: "2026-10-18"})
	s.Require().NoError(err)
	s.Equal("brunch", updated.Description)
	s.True(decimal.RequireFromString("12.5").Equal(updated.Amount))
	s.Equal("2026-10-18", updated.Date.String())

	s.Require().NoError(s.expenses.Delete(s.ctx, s.alice, e.ID))
	s.ErrorIs(s.expenses.Delete(s.ctx, s.alice, e.ID), ErrNotFound)
}

func (s *StoreSuite) TestEachVisitsOnlyOwnedRecords() {
	for i := 0; i < 7; i++ {
		s.addExpense(s.alice, "1", "a", "Food", i)
	}
	s.addExpense(s.bob, "1", "b", "Food", 0)

	var seen []domain.Record
	err := s.expenses.Each(s.ctx, s.alice, func(r domain.Record) error {
		seen = append(seen, r)
		return nil
	})
	s.Require().NoError(err)
	s.Len(seen, 7)
	for _, r := range seen {
		s.Equal(s.alice, r.OwnerID)
		s.Equal("Food", r.Tag)
	}
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestLoadCatalog(t *testing.T) {
	gdb, err := db.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb))

	catalog, err := LoadCatalog(context.Background(), gdb)
	require.NoError(t, err)
	assert.Contains(t, catalog.Categories(), "Food")
	assert.Contains(t, catalog.Sources(), "Salary")

	// callers get copies
	cats := catalog.Categories()
	cats[0] = "mutated"
	assert.NotContains(t, catalog.Categories(), "mutated")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%!_off!!", escapeLike("50%_off!"))
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sample(date time.Time, amount string) core.Transaction {
	return core.Transaction{
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Type:        core.Expense,
		Category:    "food",
		Account:     "wechat",
		Description: "lunch",
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("unexpected versions %d %d", v1, v2)
	}
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	shanghai := time.FixedZone("CST", 8*3600)
	in := sample(time.Date(2024, 3, 10, 12, 30, 0, 0, shanghai), "12.50")
	in.CreatedAt = time.Date(2024, 3, 10, 12, 31, 0, 0, time.UTC)

	saved, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, ok, err := repo.FindByID(ctx, saved.ID)
	if err != nil || !ok {
		t.Fatalf("FindByID = %v, %v", ok, err)
	}
	if !got.Date.Equal(in.Date) {
		t.Errorf("date = %v, want %v", got.Date, in.Date)
	}
	if _, offset := got.Date.Zone(); offset != 8*3600 {
		t.Errorf("offset = %d, want %d", offset, 8*3600)
	}
	if !got.Amount.Equal(in.Amount) {
		t.Errorf("amount = %s", got.Amount)
	}
	if got.Type != core.Expense || got.Category != "food" || got.Account != "wechat" || got.Description != "lunch" {
		t.Errorf("unexpected fields %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %v", got.CreatedAt)
	}

	if _, ok, _ := repo.FindByID(ctx, 9999); ok {
		t.Error("FindByID on missing id should report false")
	}
}

func TestSQLiteRepositoryOrderingAndRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, d := range []int{15, 17, 16} {
		if _, err := repo.Insert(ctx, sample(time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC), "1")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if _, err := repo.Insert(ctx, sample(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), "1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	wantDays := []int{1, 17, 16, 15}
	if len(all) != len(wantDays) {
		t.Fatalf("ListAll returned %d items", len(all))
	}
	for i, d := range wantDays {
		if all[i].Date.Day() != d {
			t.Fatalf("ListAll[%d] day = %d, want %d", i, all[i].Date.Day(), d)
		}
	}

	from, to := core.DayWindow(
		time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	)
	inRange, err := repo.ListByRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListByRange: %v", err)
	}
	if len(inRange) != 2 || inRange[0].Date.Day() != 17 || inRange[1].Date.Day() != 16 {
		t.Fatalf("unexpected range result %+v", inRange)
	}

	latest, ok, err := repo.Latest(ctx)
	if err != nil || !ok || latest.Date.Month() != time.February {
		t.Fatalf("Latest = %+v, %v, %v", latest, ok, err)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 4 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestSQLiteRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, ok, err := repo.Latest(ctx); ok || err != nil {
		t.Fatalf("empty Latest = %v, %v", ok, err)
	}

	saved, err := repo.Insert(ctx, sample(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "3"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ok, err := repo.Delete(ctx, saved.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	ok, err = repo.Delete(ctx, saved.ID)
	if err != nil || ok {
		t.Fatalf("second Delete = %v, %v", ok, err)
	}
}

func TestSQLiteRepositoryDatesBeyondNanosecondRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	future := sample(time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC), "1")
	future.Description = "future"
	past := sample(time.Date(1600, 6, 1, 0, 0, 0, 0, time.UTC), "1")
	past.Description = "past"
	now := sample(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "1")
	now.Description = "now"

	for _, tx := range []core.Transaction{future, past, now} {
		if _, err := repo.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []string{"future", "now", "past"}
	if len(all) != len(want) {
		t.Fatalf("ListAll returned %d items", len(all))
	}
	for i, d := range want {
		if all[i].Description != d {
			t.Fatalf("ListAll[%d] = %q, want %q", i, all[i].Description, d)
		}
	}

	latest, ok, err := repo.Latest(ctx)
	if err != nil || !ok || latest.Description != "future" {
		t.Fatalf("Latest = %q, %v, %v", latest.Description, ok, err)
	}

	from, to := core.YearWindow(2300, time.UTC)
	inRange, err := repo.ListByRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListByRange: %v", err)
	}
	if len(inRange) != 1 || inRange[0].Description != "future" {
		t.Fatalf("2300 window = %+v", inRange)
	}

	from, to = core.YearWindow(1, time.UTC)
	if inRange, err := repo.ListByRange(ctx, from, to); err != nil || len(inRange) != 0 {
		t.Fatalf("year 1 window = %d items, %v", len(inRange), err)
	}
}

func TestSQLiteRepositoryRangeBoundaries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	from, to := core.DayWindow(
		time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	)
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"one tick before from", from.Add(-time.Nanosecond), false},
		{"from", from, true},
		{"to", to, true},
		{"one tick after to", to.Add(time.Nanosecond), false},
	}
	for _, tt := range tests {
		tx := sample(tt.date, "1")
		tx.Description = tt.name
		if _, err := repo.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert %s: %v", tt.name, err)
		}
	}

	inRange, err := repo.ListByRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListByRange: %v", err)
	}
	got := make(map[string]bool, len(inRange))
	for _, tx := range inRange {
		got[tx.Description] = true
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got[tt.name] != tt.want {
				t.Fatalf("included = %v, want %v", got[tt.name], tt.want)
			}
		})
	}
}

func TestSQLiteRepositoryInsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	stamped := sample(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "1")
	stamped.CreatedAt = time.Date(1999, 12, 31, 23, 59, 0, 0, time.UTC)
	saved, err := repo.Insert(ctx, stamped)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !saved.CreatedAt.Equal(stamped.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", saved.CreatedAt, stamped.CreatedAt)
	}

	unstamped, err := repo.Insert(ctx, sample(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "1"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !unstamped.CreatedAt.IsZero() {
		t.Fatalf("created_at = %v, want zero", unstamped.CreatedAt)
	}
}

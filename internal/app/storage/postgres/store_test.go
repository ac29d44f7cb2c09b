package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/domain/property"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchPropertiesAppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)

	columns := []string{
		"id", "owner_id", "project_id", "title", "description", "type",
		"city", "state", "locality", "pincode", "sqft", "bedrooms", "bathrooms",
		"price", "images", "status", "created_at", "updated_at",
	}
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM properties WHERE status = 'ACTIVE' AND lower\(city\) = lower\(\$1\) AND price <= \$2`).
		WithArgs("Hyderabad", 9000000.0).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"p1", "u1", nil, "2BHK in Kondapur", "", "APARTMENT",
			"Hyderabad", "Telangana", "Kondapur", "500084", 1150.0, 2, 2,
			7500000.0, "{}", "ACTIVE", now, now,
		))

	result, err := store.SearchProperties(context.Background(), property.SearchFilter{
		City:     "Hyderabad",
		MaxPrice: 9000000,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result) != 1 || result[0].ID != "p1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchasesRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ad_purchases`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ad_purchases`).WillReturnError(errors.New("slot taken"))
	mock.ExpectRollback()

	now := time.Now().UTC()
	purchases := []ad.Purchase{
		{BuyerID: "u1", Slot: 1, PropertyID: "p1", Days: 3, FinalAmount: 1425, StartsAt: now, EndsAt: now.AddDate(0, 0, 3)},
		{BuyerID: "u1", Slot: 2, PropertyID: "p1", Days: 3, FinalAmount: 1140, StartsAt: now, EndsAt: now.AddDate(0, 0, 3)},
	}
	if _, err := store.CreatePurchases(context.Background(), purchases); err == nil {
		t.Fatal("expected error from failed second insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchasesCommitsAllRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ad_purchases`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ad_purchases`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	purchases := []ad.Purchase{
		{BuyerID: "u1", Slot: 1, ProjectID: "pr1", Days: 7, FinalAmount: 3150, StartsAt: now, EndsAt: now.AddDate(0, 0, 7)},
		{BuyerID: "u1", Slot: 3, ProjectID: "pr1", Days: 7, FinalAmount: 1890, StartsAt: now, EndsAt: now.AddDate(0, 0, 7)},
	}
	created, err := store.CreatePurchases(context.Background(), purchases)
	if err != nil {
		t.Fatalf("create purchases: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(created))
	}
	for _, p := range created {
		if p.ID == "" {
			t.Fatal("expected generated purchase ID")
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTouchSessionMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE sessions SET last_seen_at`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.TouchSession(context.Background(), "gone"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

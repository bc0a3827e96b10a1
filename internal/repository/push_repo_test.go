package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"smart_switch/internal/models"
)

func TestPushSQLite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	repo := NewPushSQLite(db)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(upsertPushSQL)).
		WithArgs("https://push.example/1", "key", "secret", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Save(ctx, models.PushSubscription{Endpoint: "https://push.example/1", P256DH: "key", Auth: "secret", CreatedAt: at}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectPushSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
			AddRow("https://push.example/1", "key", "secret", at))
	subs, err := repo.List(ctx)
	if err != nil || len(subs) != 1 || subs[0].Auth != "secret" {
		t.Fatalf("List: %+v, %v", subs, err)
	}

	mock.ExpectExec(regexp.QuoteMeta(deletePushSQL)).
		WithArgs("https://push.example/1").
		WillReturnError(errors.New("locked"))
	if err := repo.Delete(ctx, "https://push.example/1"); err == nil {
		t.Fatalf("expected delete error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

/*
Copyright 2024 Mintline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func TestRecordOutcome_FirstWrite(t *testing.T) {
	ds, mock := newTestDatasource(t)

	payload := json.RawMessage(`{"status":"VALIDATED","tx_hash":"ABC"}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mintline.idempotency_records")).
		WithArgs(model.KindMint, "batch_1-1", []byte(payload), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.RecordOutcome(context.Background(), &model.IdempotencyRecord{
		Kind:    model.KindMint,
		Key:     "batch_1-1",
		Payload: payload,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcome_IdenticalReplayIsNoop(t *testing.T) {
	ds, mock := newTestDatasource(t)

	payload := json.RawMessage(`{"status":"VALIDATED","tx_hash":"ABC"}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mintline.idempotency_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, recorded_at FROM mintline.idempotency_records")).
		WithArgs(model.KindMint, "batch_1-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "recorded_at"}).
			AddRow([]byte(payload), time.Now()))

	err := ds.RecordOutcome(context.Background(), &model.IdempotencyRecord{
		Kind:    model.KindMint,
		Key:     "batch_1-1",
		Payload: payload,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcome_DivergentReplayConflicts(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mintline.idempotency_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, recorded_at FROM mintline.idempotency_records")).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "recorded_at"}).
			AddRow([]byte(`{"tx_hash":"OLD"}`), time.Now()))

	err := ds.RecordOutcome(context.Background(), &model.IdempotencyRecord{
		Kind:    model.KindIssue,
		Key:     "issue-001",
		Payload: json.RawMessage(`{"tx_hash":"NEW"}`),
	})
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrConflict, apierror.Code(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOutcome_Miss(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, recorded_at FROM mintline.idempotency_records")).
		WithArgs(model.KindIssue, "issue-404").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "recorded_at"}))

	record, err := ds.GetOutcome(context.Background(), model.KindIssue, "issue-404")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOutcome_Hit(t *testing.T) {
	ds, mock := newTestDatasource(t)

	payload := []byte(`{"status":"VALIDATED"}`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, recorded_at FROM mintline.idempotency_records")).
		WithArgs(model.KindBurn, "burn-7").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "recorded_at"}).
			AddRow(payload, time.Now()))

	record, err := ds.GetOutcome(context.Background(), model.KindBurn, "burn-7")
	assert.NoError(t, err)
	assert.Equal(t, json.RawMessage(payload), record.Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndGetAccounts(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mintline.accounts")).
		WithArgs(model.RoleIssuer, "rIssuerAAAAAAAAAAAAAAAAAAAAAAA", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.SaveAccount(context.Background(), &model.Account{
		Role:        model.RoleIssuer,
		Address:     "rIssuerAAAAAAAAAAAAAAAAAAAAAAA",
		RequireAuth: true,
	})
	assert.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, address, require_auth FROM mintline.accounts")).
		WillReturnRows(sqlmock.NewRows([]string{"role", "address", "require_auth"}).
			AddRow(model.RoleHot, "rHotBBBBBBBBBBBBBBBBBBBBBBBBBB", false).
			AddRow(model.RoleIssuer, "rIssuerAAAAAAAAAAAAAAAAAAAAAAA", true))

	accounts, err := ds.GetAccounts(context.Background())
	assert.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, model.RoleIssuer, accounts[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

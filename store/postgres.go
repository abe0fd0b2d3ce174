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
	"bytes"
	"context"
	"database/sql"
	"time"

	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/model"
)

// RecordOutcome writes the definitive result for (kind, key) exactly once.
// A replay with the same payload is silently absorbed; a replay with a
// different payload is rejected as a conflict because it means two distinct
// requests reused one idempotency key.
func (d Datasource) RecordOutcome(ctx context.Context, record *model.IdempotencyRecord) error {
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	result, err := d.Conn.ExecContext(ctx,
		`INSERT INTO mintline.idempotency_records (kind, key, payload, recorded_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, key) DO NOTHING`,
		record.Kind, record.Key, []byte(record.Payload), recordedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record outcome", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record outcome", err)
	}
	if rows > 0 {
		return nil
	}

	existing, err := d.GetOutcome(ctx, record.Kind, record.Key)
	if err != nil {
		return err
	}
	if existing != nil && bytes.Equal(existing.Payload, record.Payload) {
		return nil
	}
	return apierror.NewAPIError(apierror.ErrConflict,
		"Idempotency key already holds a different result", record.Key)
}

// GetOutcome returns the stored record, or nil when the key has never been
// completed.
func (d Datasource) GetOutcome(ctx context.Context, kind model.OperationKind, key string) (*model.IdempotencyRecord, error) {
	record := &model.IdempotencyRecord{Kind: kind, Key: key}
	err := d.Conn.QueryRowContext(ctx,
		`SELECT payload, recorded_at FROM mintline.idempotency_records
		 WHERE kind = $1 AND key = $2`,
		kind, key).Scan(&record.Payload, &record.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch outcome", err)
	}
	return record, nil
}

// SaveAccount upserts one managed account by role. Seeds stay in
// configuration; only the public shape is persisted.
func (d Datasource) SaveAccount(ctx context.Context, account *model.Account) error {
	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO mintline.accounts (role, address, require_auth, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (role) DO UPDATE SET address = $2, require_auth = $3`,
		account.Role, account.Address, account.RequireAuth, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save account", err)
	}
	return nil
}

func (d Datasource) GetAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx,
		`SELECT role, address, require_auth FROM mintline.accounts ORDER BY role`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch accounts", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account := &model.Account{}
		if err := rows.Scan(&account.Role, &account.Address, &account.RequireAuth); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate accounts", err)
	}
	return accounts, nil
}

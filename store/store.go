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

// Package store persists the idempotency ledger and managed account records.
package store

import (
	"context"
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/model"
)

// IDataSource is the persistence boundary for orchestration state.
//
// The idempotency contract: GetOutcome returns nil without error when no
// record exists; RecordOutcome is append-once, replaying an identical payload
// is a no-op and replaying a different payload for the same (kind, key) is a
// conflict.
type IDataSource interface {
	RecordOutcome(ctx context.Context, record *model.IdempotencyRecord) error
	GetOutcome(ctx context.Context, kind model.OperationKind, key string) (*model.IdempotencyRecord, error)

	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccounts(ctx context.Context) ([]*model.Account, error)
}

type Datasource struct {
	Conn *sql.DB
}

var (
	instance *sql.DB
	once     sync.Once
)

// NewDataSource connects using the configured DNS and returns the postgres
// implementation.
func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con.Conn}, nil
}

// GetDBConnection provides a singleton connection pool.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = con
	})
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: instance}, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to connect to database", err)
	}
	if err = db.Ping(); err != nil {
		log.Printf("database ping error ❌: %v", err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to ping database", err)
	}
	return db, nil
}

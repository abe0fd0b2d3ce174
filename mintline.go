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

// Package mintline orchestrates asset and NFT lifecycle transactions against
// a ledger network: guarded preflight, exactly-once submission through an
// idempotency store, artifact extraction from validated metadata, and
// sequential batch processing with bounded retries.
package mintline

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/cache"
	redis_db "github.com/mintlinehq/mintline/internal/redis-db"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
	"github.com/mintlinehq/mintline/store"
)

type Mintline struct {
	datasource store.IDataSource
	ledger     ledger.Client
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
	accounts   *model.AccountSet
	submitter  submitter
	tracer     trace.Tracer
}

// NewMintline wires the orchestration layer from loaded configuration.
func NewMintline(db store.IDataSource, client ledger.Client) (*Mintline, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	sharedCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	return &Mintline{
		datasource: db,
		ledger:     client,
		redis:      redisClient.Client(),
		cache:      sharedCache,
		queue:      NewQueue(configuration),
		accounts:   AccountsFromConfig(configuration),
		submitter:  newSubmitter(configuration),
		tracer:     otel.Tracer("mintline.orchestrator"),
	}, nil
}

// AccountsFromConfig materializes the fixed managed set from configuration.
func AccountsFromConfig(configuration *config.Configuration) *model.AccountSet {
	build := func(role model.Role, c config.AccountConfig) *model.Account {
		if c.Address == "" {
			return nil
		}
		return &model.Account{
			Role:        role,
			Address:     c.Address,
			Seed:        c.Seed,
			RequireAuth: c.RequireAuth,
		}
	}
	return model.NewAccountSet(
		build(model.RoleIssuer, configuration.Accounts.Issuer),
		build(model.RoleHot, configuration.Accounts.Hot),
		build(model.RoleSeller, configuration.Accounts.Seller),
		build(model.RoleBuyer, configuration.Accounts.Buyer),
	)
}

// Accounts exposes the managed set for read-only API surfaces.
func (m *Mintline) Accounts() *model.AccountSet {
	return m.accounts
}

// PersistAccounts mirrors the managed set into the datasource so operators
// can inspect the deployment without access to configuration.
func (m *Mintline) PersistAccounts(ctx context.Context) error {
	for _, account := range m.accounts.All() {
		if err := m.datasource.SaveAccount(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

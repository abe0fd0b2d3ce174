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

package mintline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
)

// fundingPollAttempts bounds the wait for faucet funds to become visible in a
// validated ledger. Waits grow linearly: 1x, 2x, 3x the configured unit.
const fundingPollAttempts = 3

// EnsureFunded verifies the account holds at least the configured reserve
// before any submission is attempted. On test-class networks a missing
// account is created through the faucet and the guard waits, with a hard
// bound, for the funds to land. An account that already exists below the
// reserve is never topped up, whatever the network; the guard reports the
// shortfall and the operation never submits.
func (m *Mintline) EnsureFunded(ctx context.Context, address string) (*model.FundingResult, error) {
	ctx, span := m.tracer.Start(ctx, "EnsureFunded")
	defer span.End()

	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	minReserve, err := decimal.NewFromString(configuration.Funding.MinReserve)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Invalid minimum reserve configured", err)
	}

	balance, exists, err := m.lookupBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	if exists && balance.GreaterThanOrEqual(minReserve) {
		return &model.FundingResult{Status: model.FundingSufficient, Balance: balance}, nil
	}

	// The faucet only creates accounts. An existing account below the reserve
	// is an operator problem, not something to paper over with test funds.
	if exists {
		return &model.FundingResult{Status: model.FundingInsufficient, Balance: balance},
			apierror.NewAPIError(apierror.ErrInsufficientReserve,
				fmt.Sprintf("account %s holds %s XRP, below the %s reserve", address, balance, minReserve), nil)
	}

	if !configuration.AutoFundingEnabled() {
		return &model.FundingResult{Status: model.FundingInsufficient, Balance: balance},
			apierror.NewAPIError(apierror.ErrInsufficientReserve,
				fmt.Sprintf("account %s does not exist and no faucet is available on this network", address), nil)
	}

	logrus.Infof("creating account %s through faucet (reserve %s)", address, minReserve)
	if _, err := m.ledger.FundWallet(ctx, address); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Faucet funding failed", err)
	}

	pollUnit := time.Duration(configuration.Funding.PollUnitSec) * time.Second
	for attempt := 1; attempt <= fundingPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * pollUnit):
		}

		balance, exists, err = m.lookupBalance(ctx, address)
		if err != nil {
			return nil, err
		}
		if exists && balance.GreaterThanOrEqual(minReserve) {
			return &model.FundingResult{Status: model.FundingFunded, Balance: balance}, nil
		}
	}

	return &model.FundingResult{Status: model.FundingInsufficient, Balance: balance},
		apierror.NewAPIError(apierror.ErrInsufficientReserve,
			fmt.Sprintf("faucet funds for %s did not land within the wait bound", address), nil)
}

// lookupBalance returns the XRP balance and whether the account exists at
// all; a missing account reads as zero balance rather than an error.
func (m *Mintline) lookupBalance(ctx context.Context, address string) (decimal.Decimal, bool, error) {
	info, err := m.ledger.AccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, apierror.NewAPIError(apierror.ErrInternalServer, "Account lookup failed", err)
	}
	balance, err := model.DropsToXRP(info.BalanceDrops)
	if err != nil {
		return decimal.Zero, false, apierror.NewAPIError(apierror.ErrInternalServer, "Unparseable ledger balance", err)
	}
	return balance, true, nil
}

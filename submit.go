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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/ledger"
)

// submitter carries a signed blob through the network until it is either in
// a validated ledger or classified as failed. Implementations submit exactly
// once; a timeout result still carries the hash so a later pass can find the
// transaction if it validated after we stopped watching.
type submitter interface {
	submit(ctx context.Context, client ledger.Client, txBlob string) (*ledger.TxResult, error)
}

// newSubmitter selects the strategy from configuration. Mainnet defaults to
// fire-and-poll, test networks to submit-and-wait; both are overridable.
func newSubmitter(configuration *config.Configuration) submitter {
	if configuration.Network.SubmitStrategy == config.SubmitStrategyPoll {
		return &firePollSubmitter{
			interval:    time.Duration(configuration.Submission.PollIntervalSec) * time.Second,
			maxAttempts: configuration.Submission.MaxPollAttempts,
		}
	}
	return &waitSubmitter{}
}

// firePollSubmitter submits, then polls the transaction by hash on a fixed
// interval until validation or the attempt bound.
type firePollSubmitter struct {
	interval    time.Duration
	maxAttempts int
}

func (s *firePollSubmitter) submit(ctx context.Context, client ledger.Client, txBlob string) (*ledger.TxResult, error) {
	submitted, err := client.Submit(ctx, txBlob)
	if err != nil {
		return nil, err
	}
	if !ledger.IsProvisionalSuccess(submitted.EngineResult) {
		return &ledger.TxResult{
			Hash:         submitted.TxHash,
			Validated:    false,
			EngineResult: submitted.EngineResult,
		}, nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return &ledger.TxResult{Hash: submitted.TxHash}, ctx.Err()
		case <-time.After(s.interval):
		}

		tx, err := client.Tx(ctx, submitted.TxHash)
		if err != nil {
			if errors.Is(err, ledger.ErrTxNotFound) {
				continue
			}
			return &ledger.TxResult{Hash: submitted.TxHash}, err
		}
		if tx.Validated {
			return tx, nil
		}
	}

	logrus.Warnf("transaction %s not validated after %d polls", submitted.TxHash, s.maxAttempts)
	return &ledger.TxResult{Hash: submitted.TxHash, Validated: false},
		errors.Wrap(ledger.ErrNotValidated, submitted.TxHash)
}

// waitSubmitter delegates the blocking wait to the ledger client.
type waitSubmitter struct{}

func (s *waitSubmitter) submit(ctx context.Context, client ledger.Client, txBlob string) (*ledger.TxResult, error) {
	return client.SubmitAndWait(ctx, txBlob)
}

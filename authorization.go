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

	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
)

// linesCacheTTL bounds how stale a cached trust-line read may be. Short on
// purpose: authorization state changes rarely, but when it does the guard
// should notice within one batch item.
const linesCacheTTL = 30 * time.Second

func linesCacheKey(holder, issuer string) string {
	return fmt.Sprintf("mintline:lines:%s:%s", holder, issuer)
}

// EnsureAuthorized verifies that the holder's trust line for the issuer's
// currency is authorized before issued funds move toward it. When the issuer
// does not require authorization the guard is a no-op. The holder must have
// created its own trust line already; the guard never acts on the holder's
// behalf, it only flips the issuer-side authorization bit when that is the
// one thing missing. Unmanaged addresses are outside the guard's remit and
// pass through untouched.
func (m *Mintline) EnsureAuthorized(ctx context.Context, holderAddress, currency string) (*model.AuthResult, error) {
	ctx, span := m.tracer.Start(ctx, "EnsureAuthorized")
	defer span.End()

	issuer, err := m.roleAccount(model.RoleIssuer)
	if err != nil {
		return nil, err
	}
	if !issuer.RequireAuth {
		return &model.AuthResult{Status: model.AuthOk}, nil
	}
	if holderAddress == issuer.Address {
		return &model.AuthResult{Status: model.AuthOk}, nil
	}
	if !m.accounts.Managed(holderAddress) {
		logrus.Infof("holder %s is not managed, leaving its authorization alone", holderAddress)
		return &model.AuthResult{Status: model.AuthOk}, nil
	}

	lines, err := m.accountLines(ctx, holderAddress, issuer.Address)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Trust line lookup failed", err)
	}

	found, authorized := false, false
	for _, l := range lines {
		if l.Currency == currency {
			found, authorized = true, l.Authorized
			break
		}
	}
	if !found {
		return nil, apierror.NewAPIError(apierror.ErrMissingTrustLine,
			fmt.Sprintf("%s holds no %s trust line to the issuer", holderAddress, currency), nil)
	}
	if authorized {
		return &model.AuthResult{Status: model.AuthOk}, nil
	}

	// The TrustSet changes the issuer's own on-ledger footprint, so the
	// issuer goes through the funding guard like any other signer.
	if _, err := m.EnsureFunded(ctx, issuer.Address); err != nil {
		return nil, err
	}

	// The issuer-side TrustSet names the holder as the limit peer.
	logrus.Infof("authorizing %s trust line for %s", currency, holderAddress)
	tx, err := m.lockedSubmit(ctx, issuer, &model.TransactionIntent{
		Type:     model.IntentTrustSet,
		Account:  issuer.Address,
		Currency: currency,
		Issuer:   holderAddress,
		SetAuth:  true,
	})
	if err := classifySubmission(tx, err); err != nil {
		return nil, err
	}
	if m.cache != nil {
		if err := m.cache.Delete(ctx, linesCacheKey(holderAddress, issuer.Address)); err != nil {
			logrus.Warnf("failed to drop cached trust lines for %s: %v", holderAddress, err)
		}
	}
	return &model.AuthResult{Status: model.AuthAuthorized, TxHash: tx.Hash}, nil
}

// accountLines reads the holder's trust lines toward the issuer through the
// shared cache. A miss or an unusable cache falls through to the node.
func (m *Mintline) accountLines(ctx context.Context, holder, issuer string) ([]ledger.TrustLine, error) {
	key := linesCacheKey(holder, issuer)

	var lines []ledger.TrustLine
	if m.cache != nil {
		if err := m.cache.Get(ctx, key, &lines); err != nil {
			logrus.Warnf("trust line cache read failed for %s: %v", holder, err)
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}

	lines, err := m.ledger.AccountLines(ctx, holder, issuer)
	if err != nil {
		return nil, err
	}
	if m.cache != nil && len(lines) > 0 {
		if err := m.cache.Set(ctx, key, lines, linesCacheTTL); err != nil {
			logrus.Warnf("trust line cache write failed for %s: %v", holder, err)
		}
	}
	return lines, nil
}

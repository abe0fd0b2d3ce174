package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mintlinehq/mintline/internal/request"
)

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// fetchRateFromURL pulls the current XRP fiat rate from the configured
// source.
func fetchRateFromURL(ctx context.Context, url string) (decimal.Decimal, error) {
	if url == "" {
		return decimal.Zero, errors.New("no rate source configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var body rateResponse
	resp, err := request.Call(req, &body)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "fetching rate")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decimal.Zero, errors.Errorf("rate source returned HTTP %d", resp.StatusCode)
	}
	if body.Rate.IsZero() || body.Rate.IsNegative() {
		return decimal.Zero, errors.New("rate source returned a non-positive rate")
	}
	return body.Rate, nil
}

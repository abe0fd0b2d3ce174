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

// Package api exposes the orchestration operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	mintline "github.com/mintlinehq/mintline"
	"github.com/mintlinehq/mintline/api/middleware"
	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/internal/cache"
	"github.com/mintlinehq/mintline/model"
)

// Orchestrator is the slice of the orchestration layer the API needs.
type Orchestrator interface {
	IssueAsset(ctx context.Context, idempotencyKey, currency, value string) (*model.SubmissionOutcome, error)
	DistributeAsset(ctx context.Context, idempotencyKey, currency, value string, to model.Role) (*model.SubmissionOutcome, error)
	MintToken(ctx context.Context, idempotencyKey string, minter model.Role, uri string, taxon uint32, transferable bool) (*model.SubmissionOutcome, error)
	CreateSellOffer(ctx context.Context, idempotencyKey string, owner model.Role, tokenID, amountDrops string) (*model.SubmissionOutcome, error)
	AcceptOffer(ctx context.Context, idempotencyKey string, buyer model.Role, offerID string) (*model.SubmissionOutcome, error)
	CancelOffer(ctx context.Context, idempotencyKey string, owner model.Role, offerID string) (*model.SubmissionOutcome, error)
	BurnToken(ctx context.Context, idempotencyKey string, owner model.Role, tokenID string) (*model.SubmissionOutcome, error)
	RunBatch(ctx context.Context, req *mintline.BatchRequest, observer model.BatchObserver) (*model.BatchResult, error)
	EnqueueBatchMint(ctx context.Context, req *mintline.BatchRequest) (string, error)
	Accounts() *model.AccountSet
}

type Api struct {
	orchestrator Orchestrator
	router       *gin.Engine
	rates        *cache.RateCache
}

// NewAPI wires routes and middleware around the orchestrator.
func NewAPI(orchestrator Orchestrator) *Api {
	conf, err := config.Fetch()

	r := gin.Default()
	a := &Api{
		orchestrator: orchestrator,
		router:       r,
	}
	if err != nil {
		logrus.Errorf("configuration unavailable, rate endpoint and rate limiting disabled: %v", err)
	} else {
		a.rates = cache.NewRateCache(time.Duration(conf.Rate.TTLSec)*time.Second, fetchXRPRate(conf.Rate.Url))
		r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(conf)))
	}
	r.Use(middleware.SecretKeyAuthMiddleware())

	r.GET("/health", a.Health)
	r.GET("/accounts/:role", a.GetAccount)
	r.GET("/rates/xrp", a.GetXRPRate)

	r.POST("/assets/issue", a.IssueAsset)
	r.POST("/assets/distribute", a.DistributeAsset)

	r.POST("/nfts/mint", a.MintToken)
	r.POST("/nfts/offers", a.CreateSellOffer)
	r.POST("/nfts/offers/accept", a.AcceptOffer)
	r.POST("/nfts/offers/cancel", a.CancelOffer)
	r.POST("/nfts/burn", a.BurnToken)
	r.POST("/nfts/batch-mint", a.BatchMint)

	return a
}

func (a *Api) Router() *gin.Engine {
	return a.router
}

// handleError writes the taxonomy code, message and transaction reference so
// a caller can reconcile unresolved submissions.
func handleError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"code": apiErr.Code, "error": apiErr.Message, "tx_ref": apiErr.TxRef})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (a *Api) Health(c *gin.Context) {
	conf, err := config.Fetch()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "project": conf.ProjectName, "network": conf.Network.Class})
}

// GetAccount returns one managed account's public shape. Seeds never leave
// the process; the model strips them from serialization.
func (a *Api) GetAccount(c *gin.Context) {
	role := model.Role(c.Param("role"))
	account, ok := a.orchestrator.Accounts().ByRole(role)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown account role"})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a *Api) GetXRPRate(c *gin.Context) {
	if a.rates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate source not configured"})
		return
	}
	rate, err := a.rates.Refresh(c.Request.Context(), time.Now())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": rate, "fetched_at": a.rates.FetchedAt()})
}

// fetchXRPRate builds the rate fetcher against the configured source.
func fetchXRPRate(url string) cache.FetchRateFunc {
	return func(ctx context.Context) (decimal.Decimal, error) {
		return fetchRateFromURL(ctx, url)
	}
}

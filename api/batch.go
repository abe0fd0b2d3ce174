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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mintline "github.com/mintlinehq/mintline"
	apimodel "github.com/mintlinehq/mintline/api/model"
	"github.com/mintlinehq/mintline/model"
)

// BatchMint runs a batch mint. Three modes on one route:
//   - default: run synchronously, respond with the final BatchResult
//   - ?stream=true: run synchronously, stream progress as server-sent events
//   - ?async=true: enqueue for the background workers, respond 202
func (a *Api) BatchMint(c *gin.Context) {
	var req apimodel.BatchMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateBatchMintRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batchReq := toBatchRequest(&req)

	if c.Query("async") == "true" {
		batchID, err := a.orchestrator.EnqueueBatchMint(c.Request.Context(), batchReq)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"batch_id": batchID, "status": "queued"})
		return
	}

	if c.Query("stream") == "true" {
		a.streamBatch(c, batchReq)
		return
	}

	result, err := a.orchestrator.RunBatch(c.Request.Context(), batchReq, nil)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// streamBatch emits one SSE per observer event, then the final result.
func (a *Api) streamBatch(c *gin.Context, req *mintline.BatchRequest) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	observer := func(event model.BatchEvent) {
		c.SSEvent(event.Type, event)
		c.Writer.Flush()
	}

	result, err := a.orchestrator.RunBatch(c.Request.Context(), req, observer)
	if err != nil {
		c.SSEvent("error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("result", result)
	c.Writer.Flush()
}

func toBatchRequest(req *apimodel.BatchMintRequest) *mintline.BatchRequest {
	items := make([]mintline.MintItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, mintline.MintItem{
			URI:          item.URI,
			Taxon:        item.Taxon,
			Transferable: item.Transferable,
		})
	}
	return &mintline.BatchRequest{
		BatchID: req.BatchID,
		Minter:  req.MinterRole(),
		Items:   items,
	}
}

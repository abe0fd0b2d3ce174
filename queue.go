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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"

	"github.com/hibiken/asynq"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	redis_db "github.com/mintlinehq/mintline/internal/redis-db"
	"github.com/mintlinehq/mintline/model"
)

// BatchMintTask is the asynq task type for queued batch runs.
const BatchMintTask = "batch:mint"

// Queue hands batch work to background workers. Jobs for one minter account
// always land on the same numbered queue, so workers drain them in order and
// never race on an account's sequence numbers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewQueue(configuration *config.Configuration) *Queue {
	options, err := redis_db.ParseRedisURL(fmt.Sprintf("redis://%s", configuration.Redis.Dns), configuration.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}
	redisOption := asynq.RedisClientOpt{
		Addr:      options.Addr,
		Password:  options.Password,
		DB:        options.DB,
		TLSConfig: options.TLSConfig,
	}
	return &Queue{
		Client:    asynq.NewClient(redisOption),
		Inspector: asynq.NewInspector(redisOption),
	}
}

// EnqueueBatch queues one batch run. The batch id doubles as the task id, so
// a client retrying an enqueue cannot schedule the same batch twice.
func (q *Queue) EnqueueBatch(ctx context.Context, configuration *config.Configuration, req *BatchRequest, minterAddress string) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	task := asynq.NewTask(BatchMintTask, payload)
	info, err := q.Client.EnqueueContext(ctx, task,
		asynq.TaskID(req.BatchID),
		asynq.Queue(q.queueForAccount(configuration, minterAddress)),
		asynq.MaxRetry(configuration.Queue.MaxRetryAttempts),
	)
	if err != nil {
		return err
	}
	log.Printf(" [*] Successfully enqueued batch: %+v", info.ID)
	return nil
}

// queueForAccount hashes the signing account onto one of the numbered
// queues.
func (q *Queue) queueForAccount(configuration *config.Configuration, address string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	queueIndex := int(h.Sum32())%configuration.Queue.NumberOfQueues + 1
	return fmt.Sprintf("%s_%d", configuration.Queue.BatchQueue, queueIndex)
}

// QueueNames lists every numbered queue with equal priority, for the worker
// server config.
func QueueNames(configuration *config.Configuration) map[string]int {
	queues := make(map[string]int, configuration.Queue.NumberOfQueues)
	for i := 1; i <= configuration.Queue.NumberOfQueues; i++ {
		queues[fmt.Sprintf("%s_%d", configuration.Queue.BatchQueue, i)] = 1
	}
	return queues
}

// EnqueueBatchMint resolves the minter account and queues the request.
func (m *Mintline) EnqueueBatchMint(ctx context.Context, req *BatchRequest) (string, error) {
	if req == nil || len(req.Items) == 0 {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput, "Batch requires at least one item", nil)
	}
	if req.BatchID == "" {
		req.BatchID = model.GenerateUUIDWithSuffix("batch")
	}
	minter := req.Minter
	if minter == "" {
		minter = model.RoleIssuer
	}
	account, err := m.roleAccount(minter)
	if err != nil {
		return "", err
	}
	configuration, err := config.Fetch()
	if err != nil {
		return "", err
	}
	if err := m.queue.EnqueueBatch(ctx, configuration, req, account.Address); err != nil {
		return "", err
	}
	return req.BatchID, nil
}

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

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mintline "github.com/mintlinehq/mintline"
	"github.com/mintlinehq/mintline/internal/notification"
	redis_db "github.com/mintlinehq/mintline/internal/redis-db"
	"github.com/mintlinehq/mintline/model"
)

func runWorkers(instance *mintlineInstance) error {
	options, err := redis_db.ParseRedisURL(fmt.Sprintf("redis://%s", instance.cnf.Redis.Dns), instance.cnf.Redis.SkipTLSVerify)
	if err != nil {
		return err
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      options.Addr,
			Password:  options.Password,
			DB:        options.DB,
			TLSConfig: options.TLSConfig,
		},
		asynq.Config{
			Concurrency: instance.cnf.Queue.NumberOfQueues,
			Queues:      mintline.QueueNames(instance.cnf),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(mintline.BatchMintTask, func(ctx context.Context, task *asynq.Task) error {
		var req mintline.BatchRequest
		if err := json.Unmarshal(task.Payload(), &req); err != nil {
			notification.NotifyError(err)
			return fmt.Errorf("unreadable batch payload: %w", err)
		}

		observer := func(event model.BatchEvent) {
			logrus.WithFields(logrus.Fields{
				"batch_id": event.BatchID,
				"type":     event.Type,
				"index":    event.Index,
				"attempt":  event.Attempt,
			}).Info("batch progress")
		}

		result, err := instance.mint.RunBatch(ctx, &req, observer)
		if err != nil {
			notification.NotifyError(err)
			return err
		}
		if !result.Completed {
			logrus.Warnf("batch %s halted: %d/%d processed", result.BatchID, result.Processed, result.Requested)
		}
		return nil
	})

	logrus.Info("starting batch workers")
	return srv.Run(mux)
}

func workerCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "Start the background batch workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := newInstance()
			if err != nil {
				return err
			}
			return runWorkers(instance)
		},
	}
}

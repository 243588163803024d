/*
Copyright 2024 TGFC.

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

package fanops

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/tgfc/fanops/config"
	redis_db "github.com/tgfc/fanops/internal/redis-db"
	"github.com/tgfc/fanops/model"
)

// Queue hands webhook events off to the background workers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// WebhookTaskPayload is what a queued webhook processing task carries. The
// payload itself stays in the ledger row; the task only names it.
type WebhookTaskPayload struct {
	WebhookEventID string `json:"webhook_event_id"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueWebhookEvent queues a ledger row for processing. The task id is the
// ledger row id, so a delivery already sitting in the queue is not enqueued
// twice.
func (q *Queue) EnqueueWebhookEvent(ctx context.Context, event *model.WebhookEvent) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(WebhookTaskPayload{WebhookEventID: event.WebhookEventID})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(event.WebhookEventID),
		asynq.Queue(cfg.Queue.WebhookQueue),
		asynq.MaxRetry(5),
	}
	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if err == asynq.ErrTaskIDConflict {
			return nil
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued webhook event: %+v", event.WebhookEventID)
	return nil
}

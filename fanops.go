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
	"embed"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/database"
	"github.com/tgfc/fanops/internal/shopify"
	"github.com/tgfc/fanops/model"
)

// Fanops is the main struct for the operations dashboard core. It owns the
// linking engine, the state machine, and the webhook ledger, all backed by
// the injected datasource.
type Fanops struct {
	queue      *Queue
	datasource database.IDataSource
	orders     shopify.OrderFetcher
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewFanops initializes a new instance of Fanops with the provided datasource.
// It fetches the configuration and wires up the task queue and the order
// source client.
func NewFanops(db database.IDataSource) (*Fanops, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	return &Fanops{
		datasource: db,
		queue:      newQueue,
		orders:     shopify.NewClient(&configuration.Shopify),
	}, nil
}

func (f *Fanops) GetWorkItem(ctx context.Context, id string) (*model.WorkItem, error) {
	return f.datasource.GetWorkItemByID(ctx, id)
}

// GetStatusTimeline returns the append-only transition history of a work
// item, oldest first.
func (f *Fanops) GetStatusTimeline(ctx context.Context, workItemID string) ([]*model.StatusEvent, error) {
	return f.datasource.GetStatusEvents(ctx, workItemID)
}

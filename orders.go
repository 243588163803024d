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
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/internal/notification"
	"github.com/tgfc/fanops/model"
)

// Outcomes of an order import.
const (
	OrderImportCreated   = "created"
	OrderImportLinked    = "linked"
	OrderImportDuplicate = "duplicate"
	OrderImportRejected  = "rejected_not_custom"
)

// OrderImportResult reports what an order import did and which work item it
// resolved to.
type OrderImportResult struct {
	Outcome    string          `json:"outcome"`
	WorkItemID string          `json:"work_item_id,omitempty"`
	OrderType  model.OrderType `json:"order_type,omitempty"`
}

// ImportOrder fetches an order by external id and runs it through the
// pipeline: classify, dedup against existing work items, link to an open
// work item for the same customer or create a new one.
func (f *Fanops) ImportOrder(ctx context.Context, orderID string) (*OrderImportResult, error) {
	order, err := f.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return f.importOrder(ctx, order)
}

func (f *Fanops) importOrder(ctx context.Context, order *model.Order) (*OrderImportResult, error) {
	orderType := DetectOrderType(order)
	if orderType == "" {
		return &OrderImportResult{Outcome: OrderImportRejected}, nil
	}

	existing, err := f.datasource.GetOpenWorkItemByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &OrderImportResult{Outcome: OrderImportDuplicate, WorkItemID: existing.WorkItemID, OrderType: orderType}, nil
	}

	status, err := model.StatusForOrder(orderType, order.FinancialStatus)
	if err != nil {
		return nil, err
	}

	// An open work item for the same customer adopts the order instead of
	// spawning a parallel one: a design fee lands on the inquiry that asked
	// for it, a production order lands on the project that designed it.
	result, err := f.linkOrderToExisting(ctx, order, orderType, status)
	if err != nil || result != nil {
		return result, err
	}
	return f.createWorkItemFromOrder(ctx, order, orderType, status)
}

func (f *Fanops) linkOrderToExisting(ctx context.Context, order *model.Order, orderType model.OrderType, status string) (*OrderImportResult, error) {
	// Self-serve orders always stand alone; only assisted-pipeline orders
	// (the design fee and the production order it leads to) adopt an
	// existing project.
	if orderType == model.OrderTypeCustomify || order.Customer.Email == "" {
		return nil, nil
	}
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -cfg.Linking.RecencyWindowDays)
	item, err := f.datasource.GetRecentOpenWorkItemByEmail(ctx, order.Customer.Email, since)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Type != model.TypeAssistedProject {
		return nil, nil
	}

	designFee := orderType == model.OrderTypeDesignService
	if designFee && item.DesignFeeOrderID != "" {
		return nil, nil
	}
	if !designFee && item.ShopifyOrderID != "" {
		return nil, nil
	}

	quantity := CustomQuantity(order)
	err = f.datasource.AttachOrderToWorkItem(ctx, item.WorkItemID, order.ID, order.Name, designFee, quantity)
	if err != nil {
		// A concurrent import can win the bucket; fall through to creating a
		// fresh work item and let reconciliation merge later.
		if apierror.IsConflict(err) {
			return nil, nil
		}
		return nil, err
	}

	if item.Status != status {
		if _, err := f.applyStatus(ctx, item, status, fmt.Sprintf("order %s imported", order.Name)); err != nil {
			return nil, err
		}
	}
	f.postOrderActions(ctx, item.WorkItemID, order, designFee)
	return &OrderImportResult{Outcome: OrderImportLinked, WorkItemID: item.WorkItemID, OrderType: orderType}, nil
}

func (f *Fanops) createWorkItemFromOrder(ctx context.Context, order *model.Order, orderType model.OrderType, status string) (*OrderImportResult, error) {
	itemType, err := model.TypeForOrder(orderType)
	if err != nil {
		return nil, err
	}

	designFee := orderType == model.OrderTypeDesignService
	item := &model.WorkItem{
		Type:          itemType,
		Source:        model.SourceShopify,
		Title:         orderTitle(order),
		Status:        status,
		CustomerEmail: strings.ToLower(order.Customer.Email),
		CustomerName:  strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName),
		Quantity:      CustomQuantity(order),
		ReasonIncluded: map[string]interface{}{
			"detected_via": "order_classifier",
			"order_type":   string(orderType),
		},
	}
	if designFee {
		item.DesignFeeOrderID = order.ID
		item.DesignFeeOrderNumber = order.Name
	} else {
		item.ShopifyOrderID = order.ID
		item.ShopifyOrderNumber = order.Name
	}
	item.NextFollowUpAt = NextFollowUp(status, false, time.Now())

	created, err := f.datasource.CreateWorkItem(ctx, item)
	if err != nil {
		// The order id carries a unique constraint: a concurrent import of
		// the same order already created the work item.
		if apierror.IsConflict(err) {
			existing, lookupErr := f.datasource.GetOpenWorkItemByOrderID(ctx, order.ID)
			if lookupErr == nil && existing != nil {
				return &OrderImportResult{Outcome: OrderImportDuplicate, WorkItemID: existing.WorkItemID, OrderType: orderType}, nil
			}
		}
		return nil, err
	}

	f.postOrderActions(ctx, created.WorkItemID, order, designFee)
	return &OrderImportResult{Outcome: OrderImportCreated, WorkItemID: created.WorkItemID, OrderType: orderType}, nil
}

func orderTitle(order *model.Order) string {
	name := strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
	if name == "" {
		name = order.Customer.Email
	}
	if name == "" {
		return fmt.Sprintf("Order %s", order.Name)
	}
	return fmt.Sprintf("%s (%s)", name, order.Name)
}

// postOrderActions runs the auto-link sweep and outbound notification after a
// work item resolves for an order.
func (f *Fanops) postOrderActions(ctx context.Context, workItemID string, order *model.Order, designFee bool) {
	linked, err := f.autoLinkCommunications(ctx, workItemID, strings.ToLower(order.Customer.Email), order.CreatedAt, designFee)
	if err != nil {
		notification.NotifyError(err)
	} else if linked > 0 {
		logrus.Infof("auto-linked %d communications to work item %s", linked, workItemID)
	}

	go func() {
		err := SendWebhook(NewWebhook{
			Event: "work_item.order_imported",
			Payload: map[string]interface{}{
				"work_item_id": workItemID,
				"order_id":     order.ID,
				"order_number": order.Name,
			},
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

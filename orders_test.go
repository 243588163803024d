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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgfc/fanops/model"
)

type stubOrderFetcher struct {
	order *model.Order
	err   error
}

func (s *stubOrderFetcher) GetOrder(_ context.Context, _ string) (*model.Order, error) {
	return s.order, s.err
}

func designServiceOrder(financialStatus string) *model.Order {
	return &model.Order{
		ID:              "9001",
		Name:            "#1042",
		FinancialStatus: financialStatus,
		Customer:        model.OrderCustomer{Email: "amy@threadbarepress.com", FirstName: "Amy", LastName: "Baker"},
		LineItems: []model.OrderLineItem{
			{Title: "Professional Custom Fan Design Service", Quantity: 1},
		},
		CreatedAt: time.Now(),
	}
}

// A paid design-service order creates an assisted project already at
// design_fee_paid.
func TestImportOrderDesignServicePaid(t *testing.T) {
	mockLinkingConfig()

	var created *model.WorkItem
	mock := &MockDataSource{
		CreateWorkItemFn: func(_ context.Context, item *model.WorkItem) (*model.WorkItem, error) {
			item.WorkItemID = "wki_new"
			created = item
			return item, nil
		},
	}
	f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: designServiceOrder("paid")}}

	result, err := f.ImportOrder(context.Background(), "9001")
	require.NoError(t, err)
	assert.Equal(t, OrderImportCreated, result.Outcome)
	assert.Equal(t, "wki_new", result.WorkItemID)
	assert.Equal(t, model.OrderTypeDesignService, result.OrderType)

	require.NotNil(t, created)
	assert.Equal(t, model.TypeAssistedProject, created.Type)
	assert.Equal(t, model.StatusDesignFeePaid, created.Status)
	assert.Equal(t, "9001", created.DesignFeeOrderID)
	assert.Equal(t, "#1042", created.DesignFeeOrderNumber)
	assert.Empty(t, created.ShopifyOrderID)
	assert.Equal(t, "amy@threadbarepress.com", created.CustomerEmail)
}

// The same order with a pending payment lands on design_fee_sent, never
// design_fee_paid.
func TestImportOrderDesignServicePending(t *testing.T) {
	mockLinkingConfig()

	var created *model.WorkItem
	mock := &MockDataSource{
		CreateWorkItemFn: func(_ context.Context, item *model.WorkItem) (*model.WorkItem, error) {
			item.WorkItemID = "wki_new"
			created = item
			return item, nil
		},
	}
	f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: designServiceOrder("pending")}}

	result, err := f.ImportOrder(context.Background(), "9001")
	require.NoError(t, err)
	assert.Equal(t, OrderImportCreated, result.Outcome)
	require.NotNil(t, created)
	assert.Equal(t, model.StatusDesignFeeSent, created.Status)
}

func TestImportOrderNotCustomRejected(t *testing.T) {
	mockLinkingConfig()

	order := &model.Order{
		ID:        "9002",
		Name:      "#1043",
		LineItems: []model.OrderLineItem{{Title: "Gift Card", Quantity: 1}},
	}
	f := &Fanops{datasource: &MockDataSource{}, orders: &stubOrderFetcher{order: order}}

	result, err := f.ImportOrder(context.Background(), "9002")
	require.NoError(t, err)
	assert.Equal(t, OrderImportRejected, result.Outcome)
	assert.Empty(t, result.WorkItemID)
}

func TestImportOrderDuplicate(t *testing.T) {
	mockLinkingConfig()

	mock := &MockDataSource{
		GetOpenWorkItemByOrderIDFn: func(_ context.Context, orderID string) (*model.WorkItem, error) {
			return &model.WorkItem{WorkItemID: "wki_existing", ShopifyOrderID: orderID}, nil
		},
	}
	f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: designServiceOrder("paid")}}

	result, err := f.ImportOrder(context.Background(), "9001")
	require.NoError(t, err)
	assert.Equal(t, OrderImportDuplicate, result.Outcome)
	assert.Equal(t, "wki_existing", result.WorkItemID)
}

// A design fee order from a customer with an open inquiry attaches to that
// inquiry instead of spawning a second work item.
func TestImportOrderLinksToExistingInquiry(t *testing.T) {
	mockLinkingConfig()

	var attachedID string
	var attachedDesignFee bool
	var newStatus string
	mock := &MockDataSource{
		GetRecentByEmailFn: func(_ context.Context, email string, _ time.Time) (*model.WorkItem, error) {
			return &model.WorkItem{
				WorkItemID:    "wki_inquiry",
				Type:          model.TypeAssistedProject,
				Status:        model.StatusInfoSent,
				CustomerEmail: email,
			}, nil
		},
		AttachOrderToWorkItemFn: func(_ context.Context, id, orderID, orderNumber string, designFee bool, _ int) error {
			attachedID = id
			attachedDesignFee = designFee
			assert.Equal(t, "9001", orderID)
			assert.Equal(t, "#1042", orderNumber)
			return nil
		},
		UpdateWorkItemStatusFn: func(_ context.Context, _, status string, _, _ *time.Time) error {
			newStatus = status
			return nil
		},
	}
	f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: designServiceOrder("paid")}}

	result, err := f.ImportOrder(context.Background(), "9001")
	require.NoError(t, err)
	assert.Equal(t, OrderImportLinked, result.Outcome)
	assert.Equal(t, "wki_inquiry", result.WorkItemID)
	assert.Equal(t, "wki_inquiry", attachedID)
	assert.True(t, attachedDesignFee)
	assert.Equal(t, model.StatusDesignFeePaid, newStatus)
}

// A customify order never adopts an existing project, even when the customer
// has one open.
func TestImportOrderCustomifyAlwaysCreates(t *testing.T) {
	mockLinkingConfig()

	recencyCalled := false
	mock := &MockDataSource{
		GetRecentByEmailFn: func(_ context.Context, _ string, _ time.Time) (*model.WorkItem, error) {
			recencyCalled = true
			return &model.WorkItem{WorkItemID: "wki_other", Type: model.TypeAssistedProject, Status: model.StatusInfoSent}, nil
		},
	}
	order := &model.Order{
		ID:       "9003",
		Name:     "#1044",
		Customer: model.OrderCustomer{Email: "amy@threadbarepress.com"},
		LineItems: []model.OrderLineItem{
			{
				Title:      "Custom Hand Fan",
				Quantity:   2,
				Properties: []model.LineItemProperty{{Name: "_customify_design_id", Value: "xyz"}},
			},
		},
		CreatedAt: time.Now(),
	}
	f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: order}}

	result, err := f.ImportOrder(context.Background(), "9003")
	require.NoError(t, err)
	assert.Equal(t, OrderImportCreated, result.Outcome)
	assert.False(t, recencyCalled)
	assert.Equal(t, model.OrderTypeCustomify, result.OrderType)
}

// Payment-bearing statuses for a bulk order follow the reported financial
// status: paid and partially paid map to the ready-for-batch pair, anything
// else stays at invoice_sent.
func TestImportOrderBulkStatusMapping(t *testing.T) {
	mockLinkingConfig()

	tests := []struct {
		financialStatus string
		want            string
	}{
		{"paid", model.StatusPaidReadyForBatch},
		{"partially_paid", model.StatusDepositPaidReadyForBatch},
		{"pending", model.StatusInvoiceSent},
		{"refunded", model.StatusInvoiceSent},
	}
	for _, tt := range tests {
		t.Run(tt.financialStatus, func(t *testing.T) {
			var created *model.WorkItem
			mock := &MockDataSource{
				CreateWorkItemFn: func(_ context.Context, item *model.WorkItem) (*model.WorkItem, error) {
					item.WorkItemID = "wki_bulk"
					created = item
					return item, nil
				},
			}
			order := &model.Order{
				ID:              "9004",
				Name:            "#1045",
				FinancialStatus: tt.financialStatus,
				LineItems:       []model.OrderLineItem{{Title: "Custom Bulk Order (300 units)", Quantity: 1}},
				CreatedAt:       time.Now(),
			}
			f := &Fanops{datasource: mock, orders: &stubOrderFetcher{order: order}}

			result, err := f.ImportOrder(context.Background(), "9004")
			require.NoError(t, err)
			assert.Equal(t, OrderImportCreated, result.Outcome)
			require.NotNil(t, created)
			assert.Equal(t, tt.want, created.Status)
			assert.Equal(t, 300, created.Quantity)
		})
	}
}

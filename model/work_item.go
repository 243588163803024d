/*
Copyright 2024 TGFC Authors.

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

package model

import (
	"fmt"
	"time"
)

// WorkItemType distinguishes the two fulfillment taxonomies a work item can
// move through.
type WorkItemType string

const (
	TypeCustomifyOrder  WorkItemType = "customify_order"  // Customer supplied the design via the online configurator.
	TypeAssistedProject WorkItemType = "assisted_project" // Staff designs for the customer.
)

// WorkItemSource records where a work item originated.
type WorkItemSource string

const (
	SourceShopify WorkItemSource = "shopify"
	SourceEmail   WorkItemSource = "email"
	SourceForm    WorkItemSource = "form"
	SourceManual  WorkItemSource = "manual"
)

// Status constants for the customify (self-serve) pipeline.
const (
	StatusNeedsDesignReview = "needs_design_review"
	StatusApproved          = "approved"
	StatusNeedsCustomerFix  = "needs_customer_fix"
	StatusReadyForBatch     = "ready_for_batch"
	StatusClosed            = "closed"
)

// Status constants for the assisted-project pipeline.
const (
	StatusNewInquiry                  = "new_inquiry"
	StatusFutureEventMonitoring       = "future_event_monitoring"
	StatusInfoSent                    = "info_sent"
	StatusDesignFeeSent               = "design_fee_sent"
	StatusDesignFeePaid               = "design_fee_paid"
	StatusInDesign                    = "in_design"
	StatusProofSent                   = "proof_sent"
	StatusAwaitingApproval            = "awaiting_approval"
	StatusInvoiceSent                 = "invoice_sent"
	StatusDepositPaidReadyForBatch    = "deposit_paid_ready_for_batch"
	StatusOnPaymentTermsReadyForBatch = "on_payment_terms_ready_for_batch"
	StatusPaidReadyForBatch           = "paid_ready_for_batch"
	StatusClosedWon                   = "closed_won"
	StatusClosedLost                  = "closed_lost"
	StatusClosedEventCancelled        = "closed_event_cancelled"
)

// Status constants shared by both pipelines.
const (
	StatusBatched = "batched"
	StatusShipped = "shipped"
)

// statusTransitions is the hard-coded transition table over the shared status
// column. Both taxonomies live in one map; batched and shipped are shared
// states, and shipped fans out into the terminal set of the item's own
// pipeline only.
var statusTransitions = map[string][]string{
	// customify pipeline
	StatusNeedsDesignReview: {StatusApproved, StatusNeedsCustomerFix},
	StatusApproved:          {StatusReadyForBatch},
	StatusNeedsCustomerFix:  {StatusNeedsDesignReview},
	StatusReadyForBatch:     {StatusBatched},

	// assisted pipeline
	StatusNewInquiry:                  {StatusInfoSent, StatusFutureEventMonitoring},
	StatusFutureEventMonitoring:       {StatusInfoSent},
	StatusInfoSent:                    {StatusDesignFeeSent},
	StatusDesignFeeSent:               {StatusDesignFeePaid},
	StatusDesignFeePaid:               {StatusInDesign},
	StatusInDesign:                    {StatusProofSent},
	StatusProofSent:                   {StatusAwaitingApproval},
	StatusAwaitingApproval:            {StatusInDesign, StatusInvoiceSent},
	StatusInvoiceSent:                 {StatusDepositPaidReadyForBatch, StatusOnPaymentTermsReadyForBatch, StatusPaidReadyForBatch},
	StatusDepositPaidReadyForBatch:    {StatusBatched},
	StatusOnPaymentTermsReadyForBatch: {StatusBatched},
	StatusPaidReadyForBatch:           {StatusBatched},

	// shared tail; shipped is handled per type in IsValidTransition
	StatusBatched: {StatusShipped},
}

// assistedStatuses is the set of statuses that belong to the assisted-project
// pipeline before the shared tail. An assisted project can be lost or have
// its event cancelled at any of these points, not only after shipping.
var assistedStatuses = map[string]bool{
	StatusNewInquiry:                  true,
	StatusFutureEventMonitoring:       true,
	StatusInfoSent:                    true,
	StatusDesignFeeSent:               true,
	StatusDesignFeePaid:               true,
	StatusInDesign:                    true,
	StatusProofSent:                   true,
	StatusAwaitingApproval:            true,
	StatusInvoiceSent:                 true,
	StatusDepositPaidReadyForBatch:    true,
	StatusOnPaymentTermsReadyForBatch: true,
	StatusPaidReadyForBatch:           true,
}

// IsTerminalStatus reports whether a status closes a work item for good.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusClosed, StatusClosedWon, StatusClosedLost, StatusClosedEventCancelled:
		return true
	}
	return false
}

// IsValidTransition reports whether the transition from -> to is allowed for
// a work item of the given type. A shipped item terminates into its own
// pipeline's closed set: closed for customify orders, closed_won, closed_lost
// or closed_event_cancelled for assisted projects. Assisted projects may
// additionally move to closed_lost or closed_event_cancelled from any
// non-terminal assisted status.
func IsValidTransition(itemType WorkItemType, from, to string) bool {
	if from == StatusShipped {
		switch itemType {
		case TypeCustomifyOrder:
			return to == StatusClosed
		case TypeAssistedProject:
			return to == StatusClosedWon || to == StatusClosedLost || to == StatusClosedEventCancelled
		}
		return false
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	if itemType == TypeAssistedProject && assistedStatuses[from] &&
		(to == StatusClosedLost || to == StatusClosedEventCancelled) {
		return true
	}
	return false
}

// Financial statuses as reported by the order source.
const (
	FinancialStatusPaid          = "paid"
	FinancialStatusPartiallyPaid = "partially_paid"
	FinancialStatusPending       = "pending"
)

// StatusForOrder maps an order type and its externally reported financial
// status to the work item status a fresh import lands in. The mapping is
// total: every financial status string maps to exactly one status for the
// known order types, and an unknown order type is an error rather than a
// guess.
func StatusForOrder(orderType OrderType, financialStatus string) (string, error) {
	switch orderType {
	case OrderTypeCustomify:
		// Self-serve orders are paid at checkout; review starts immediately.
		return StatusNeedsDesignReview, nil
	case OrderTypeDesignService:
		if financialStatus == FinancialStatusPaid {
			return StatusDesignFeePaid, nil
		}
		return StatusDesignFeeSent, nil
	case OrderTypeBulk:
		switch financialStatus {
		case FinancialStatusPaid:
			return StatusPaidReadyForBatch, nil
		case FinancialStatusPartiallyPaid:
			return StatusDepositPaidReadyForBatch, nil
		default:
			return StatusInvoiceSent, nil
		}
	}
	return "", fmt.Errorf("no status mapping defined for order type %q", orderType)
}

// TypeForOrder maps a detected order type to the work item taxonomy it drives.
func TypeForOrder(orderType OrderType) (WorkItemType, error) {
	switch orderType {
	case OrderTypeCustomify:
		return TypeCustomifyOrder, nil
	case OrderTypeDesignService, OrderTypeBulk:
		return TypeAssistedProject, nil
	}
	return "", fmt.Errorf("no work item type defined for order type %q", orderType)
}

// WorkItem is one unit of customer fulfillment work: a self-serve order or an
// assisted design project moving through the pipeline.
type WorkItem struct {
	ID         int64          `json:"-"`
	WorkItemID string         `json:"work_item_id"`
	Type       WorkItemType   `json:"type"`
	Source     WorkItemSource `json:"source"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`

	// Production order and design fee order are mutually exclusive buckets;
	// a work item holds at most one of each.
	ShopifyOrderID       string `json:"shopify_order_id,omitempty"`
	ShopifyOrderNumber   string `json:"shopify_order_number,omitempty"`
	DesignFeeOrderID     string `json:"design_fee_order_id,omitempty"`
	DesignFeeOrderNumber string `json:"design_fee_order_number,omitempty"`

	CustomerEmail   string   `json:"customer_email"`
	CustomerName    string   `json:"customer_name"`
	AlternateEmails []string `json:"alternate_emails"`
	CustomerID      *string  `json:"customer_id,omitempty"`

	Quantity  int        `json:"quantity"`
	GripColor string     `json:"grip_color,omitempty"`
	EventDate *time.Time `json:"event_date,omitempty"`

	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	IsWaiting      bool       `json:"is_waiting"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at,omitempty"`
	LastContactAt  *time.Time `json:"last_contact_at,omitempty"`

	// ReasonIncluded captures detection provenance for debugging. It is
	// informational only and is never read back for logic.
	ReasonIncluded map[string]interface{} `json:"reason_included,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the work item is still eligible for linking and
// transitions. A work item is open iff it has never been closed.
func (w *WorkItem) IsOpen() bool {
	return w.ClosedAt == nil
}

// StatusEvent is one append-only audit record of a status transition. It is
// the only place the previous status is recorded; the work item row only
// holds the current one.
type StatusEvent struct {
	ID         int64     `json:"-"`
	EventID    string    `json:"event_id"`
	WorkItemID string    `json:"work_item_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

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
	"time"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/model"
)

// NextFollowUp computes the next follow-up time for a work item in the given
// status as of the reference time. The computation is pure: the same inputs
// always produce the same timestamp. Waiting items and terminal statuses get
// no follow-up.
func NextFollowUp(status string, isWaiting bool, from time.Time) *time.Time {
	if isWaiting || model.IsTerminalStatus(status) {
		return nil
	}
	cfg, err := config.Fetch()
	if err != nil {
		return nil
	}

	days := followUpDays(status, &cfg.FollowUp)
	if days <= 0 {
		return nil
	}
	next := from.AddDate(0, 0, days)
	return &next
}

// followUpDays maps a status to its cadence group. Batched and shipped items
// are out of the contact loop and get no cadence.
func followUpDays(status string, cfg *config.FollowUpConfig) int {
	switch status {
	case model.StatusNewInquiry, model.StatusInfoSent:
		return cfg.InquiryDays
	case model.StatusFutureEventMonitoring:
		return cfg.MonitoringDays
	case model.StatusDesignFeeSent, model.StatusInvoiceSent:
		return cfg.PaymentDays
	case model.StatusDesignFeePaid, model.StatusInDesign, model.StatusProofSent,
		model.StatusAwaitingApproval, model.StatusNeedsDesignReview, model.StatusNeedsCustomerFix:
		return cfg.DesignDays
	}
	return 0
}

// ListFollowUpsDue returns the open work items whose follow-up time has
// passed, oldest due first.
func (f *Fanops) ListFollowUpsDue(ctx context.Context, limit int) ([]*model.WorkItem, error) {
	return f.datasource.ListFollowUpsDue(ctx, time.Now(), limit)
}

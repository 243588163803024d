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
	"time"

	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/internal/notification"
	"github.com/tgfc/fanops/model"
)

// TransitionWorkItem moves a work item to a new status. The transition writes
// a status event row recording the previous status, sets closed_at exactly
// once when the target is terminal, and recomputes the follow-up date.
// Transitions on a closed work item fail loudly and mutate nothing.
func (f *Fanops) TransitionWorkItem(ctx context.Context, workItemID, toStatus, note string) (*model.WorkItem, error) {
	item, err := f.datasource.GetWorkItemByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}

	if !item.IsOpen() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("work item %s is closed and cannot change status", workItemID), nil)
	}
	if !model.IsValidTransition(item.Type, item.Status, toStatus) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("invalid transition %s -> %s for work item %s", item.Status, toStatus, workItemID), nil)
	}
	return f.applyStatus(ctx, item, toStatus, note)
}

// applyStatus performs the row mutation and audit write of a transition whose
// target has already been validated. Order ingestion also comes through here:
// an externally reported payment may move an item several stages forward, so
// only the closed-item guard applies on that path, not chain adjacency.
func (f *Fanops) applyStatus(ctx context.Context, item *model.WorkItem, toStatus, note string) (*model.WorkItem, error) {
	if !item.IsOpen() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("work item %s is closed and cannot change status", item.WorkItemID), nil)
	}

	now := time.Now()
	var closedAt *time.Time
	var nextFollowUp *time.Time
	if model.IsTerminalStatus(toStatus) {
		closedAt = &now
	} else {
		nextFollowUp = NextFollowUp(toStatus, item.IsWaiting, now)
	}

	if err := f.datasource.UpdateWorkItemStatus(ctx, item.WorkItemID, toStatus, closedAt, nextFollowUp); err != nil {
		return nil, err
	}

	event := &model.StatusEvent{
		WorkItemID: item.WorkItemID,
		FromStatus: item.Status,
		ToStatus:   toStatus,
		Note:       note,
	}
	if err := f.datasource.RecordStatusEvent(ctx, event); err != nil {
		// The status row already moved; the missing audit row is reported,
		// not rolled back, since transitions are independently retryable.
		notification.NotifyError(err)
	}

	fromStatus := item.Status
	item.Status = toStatus
	item.ClosedAt = closedAt
	item.NextFollowUpAt = nextFollowUp
	f.postTransitionActions(ctx, item, fromStatus)
	return item, nil
}

// MarkFollowedUp records a manual follow-up touch: last_contact_at moves to
// now and the next follow-up is recomputed from the unchanged status. No
// status event is written because the status does not change.
func (f *Fanops) MarkFollowedUp(ctx context.Context, workItemID string) (*model.WorkItem, error) {
	item, err := f.datasource.GetWorkItemByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("work item %s is closed and cannot be followed up", workItemID), nil)
	}
	now := time.Now()
	next := NextFollowUp(item.Status, item.IsWaiting, now)
	if err := f.datasource.UpdateWorkItemFollowUp(ctx, workItemID, next, &now); err != nil {
		return nil, err
	}
	item.NextFollowUpAt = next
	item.LastContactAt = &now
	return item, nil
}

// SnoozeWorkItem pushes the next follow-up to an explicit time without
// touching status or last contact.
func (f *Fanops) SnoozeWorkItem(ctx context.Context, workItemID string, until time.Time) error {
	item, err := f.datasource.GetWorkItemByID(ctx, workItemID)
	if err != nil {
		return err
	}
	if !item.IsOpen() {
		return apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("work item %s is closed and cannot be snoozed", workItemID), nil)
	}
	return f.datasource.UpdateWorkItemFollowUp(ctx, workItemID, &until, item.LastContactAt)
}

// SetWaiting pauses or resumes the follow-up cadence. Entering the waiting
// state freezes the follow-up date at null; leaving it recomputes from the
// current status.
func (f *Fanops) SetWaiting(ctx context.Context, workItemID string, waiting bool) error {
	item, err := f.datasource.GetWorkItemByID(ctx, workItemID)
	if err != nil {
		return err
	}
	var next *time.Time
	if !waiting {
		next = NextFollowUp(item.Status, false, time.Now())
	}
	return f.datasource.SetWorkItemWaiting(ctx, workItemID, waiting, next)
}

// postTransitionActions fires the async side effects of a transition.
func (f *Fanops) postTransitionActions(_ context.Context, item *model.WorkItem, fromStatus string) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event: "work_item.status_changed",
			Payload: map[string]interface{}{
				"work_item_id": item.WorkItemID,
				"from_status":  fromStatus,
				"to_status":    item.Status,
			},
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ImportOrderRequest asks the pipeline to fetch and classify one order.
type ImportOrderRequest struct {
	OrderID string `json:"order_id"`
}

func (r *ImportOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OrderID, validation.Required),
	)
}

// TransitionRequest moves a work item to a new status.
type TransitionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (r *TransitionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required),
	)
}

// SnoozeRequest pushes a work item's follow-up to an explicit time.
type SnoozeRequest struct {
	Until string `json:"until"`
}

func (r *SnoozeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Until, validation.Required, validation.By(func(interface{}) error {
			return validateDateFormat(time.RFC3339, r.Until)
		})),
	)
}

func (r *SnoozeRequest) UntilTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.Until)
}

// WaitingRequest toggles the follow-up pause.
type WaitingRequest struct {
	Waiting *bool `json:"waiting"`
}

func (r *WaitingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Waiting, validation.NotNil),
	)
}

// LinkEmailRequest manually attaches a communication to a work item.
type LinkEmailRequest struct {
	WorkItemID string `json:"work_item_id"`
}

func (r *LinkEmailRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.WorkItemID, validation.Required),
	)
}

// CreateDomainFilterRequest adds a sender-domain categorization rule.
type CreateDomainFilterRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

func (r *CreateDomainFilterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Domain, validation.Required, is.Domain),
		validation.Field(&r.Category, validation.Required, validation.In("newsletter", "ignored", "customer", "form_lead")),
	)
}

func validateDateFormat(format, value string) error {
	_, err := time.Parse(format, value)
	if err != nil {
		return errors.New("please format the date as RFC3339 (e.g., 2024-04-22T15:28:03+00:00)")
	}
	return nil
}

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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgfc/fanops/model"
)

func TestDetectOrderTypeDesignService(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{Title: "Professional Custom Fan Design Service", Quantity: 1},
		},
	}
	assert.Equal(t, model.OrderTypeDesignService, DetectOrderType(order))
}

func TestDetectOrderTypePersonalizationProperty(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{
				Title:      "Hand Fan",
				Properties: []model.LineItemProperty{{Name: "Personalization Details", Value: "gold foil"}},
			},
		},
	}
	assert.Equal(t, model.OrderTypeDesignService, DetectOrderType(order))
}

func TestDetectOrderTypeConfigurator(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{
				Title:      "Hand Fan",
				Properties: []model.LineItemProperty{{Name: "_customify_design_id", Value: "abc123"}},
			},
		},
	}
	assert.Equal(t, model.OrderTypeCustomify, DetectOrderType(order))
}

// A design-service line item must win over configurator properties carried by
// another line item in the same order. Mixed orders are assisted work, not
// self-serve.
func TestDetectOrderTypeDesignServiceBeatsConfigurator(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{
				Title:      "Custom Hand Fan",
				Properties: []model.LineItemProperty{{Name: "_customify_design_id", Value: "abc123"}},
			},
			{Title: "Custom Fan Design Service", Quantity: 1},
		},
	}
	assert.Equal(t, model.OrderTypeDesignService, DetectOrderType(order))
}

func TestDetectOrderTypeBulk(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{Title: "Custom Bulk Order Deposit (250 units)", Quantity: 1},
		},
	}
	assert.Equal(t, model.OrderTypeBulk, DetectOrderType(order))
}

func TestDetectOrderTypeTagFallback(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want model.OrderType
	}{
		{"configurator tag", "wholesale, customify", model.OrderTypeCustomify},
		{"bulk tag", "custom bulk, rush", model.OrderTypeBulk},
		{"design tag", "custom design", model.OrderTypeDesignService},
		{"no custom tags", "wholesale, retail", ""},
		{"empty tags", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &model.Order{
				LineItems: []model.OrderLineItem{{Title: "Stock Hand Fan", Quantity: 3}},
				Tags:      tt.tags,
			}
			assert.Equal(t, tt.want, DetectOrderType(order))
		})
	}
}

func TestDetectOrderTypeNotCustom(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{Title: "Gift Card", Quantity: 1},
			{Title: "Replacement Ribs", Quantity: 2},
		},
	}
	assert.Equal(t, model.OrderType(""), DetectOrderType(order))
}

func TestCustomQuantityFromTitle(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{Title: "Custom Bulk Order (250 units, two-sided)", Quantity: 1},
		},
	}
	assert.Equal(t, 250, CustomQuantity(order))
}

func TestCustomQuantityFallsBackToQuantityField(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{
				Title:      "Custom Hand Fan",
				Quantity:   12,
				Properties: []model.LineItemProperty{{Name: "_customify_design_id", Value: "abc"}},
			},
		},
	}
	assert.Equal(t, 12, CustomQuantity(order))
}

// Add-on inventory in the same order must not inflate the custom unit count.
func TestCustomQuantityIgnoresNonCustomItems(t *testing.T) {
	order := &model.Order{
		LineItems: []model.OrderLineItem{
			{Title: "Custom Bulk Order (500 fans)", Quantity: 1},
			{Title: "Stock Hand Fan", Quantity: 40},
		},
	}
	assert.Equal(t, 500, CustomQuantity(order))
}

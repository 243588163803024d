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
	"regexp"
	"strconv"
	"strings"

	"github.com/tgfc/fanops/model"
)

// configuratorToken is the namespace token the online configurator stamps on
// line-item properties and tags of self-serve orders.
const configuratorToken = "customify"

// designServicePhrases are line-item titles sold as design labor rather than
// product. A match anywhere in the title counts.
var designServicePhrases = []string{
	"custom fan design service",
	"design service",
	"design fee",
	"design deposit",
}

var bulkOrderPhrases = []string{
	"custom bulk order",
	"bulk custom",
	"custom fan bulk",
}

// titleQuantityPattern extracts a unit count embedded in a custom line-item
// title, e.g. "Custom Hand Fans (250 units)" or "(500 fans, two-sided)".
var titleQuantityPattern = regexp.MustCompile(`\((\d+)\s*(?:units|fans)`)

// DetectOrderType classifies an order as one of the custom order types, or ""
// when the order matches no custom pattern and should be ignored entirely.
//
// Precedence matters: design-service detection runs over every line item
// before the configurator check, so a mixed order carrying both a design
// service line and configurator properties classifies as the design service,
// never as self-serve.
func DetectOrderType(order *model.Order) model.OrderType {
	for _, item := range order.LineItems {
		if isDesignServiceItem(item) {
			return model.OrderTypeDesignService
		}
	}
	for _, item := range order.LineItems {
		if isConfiguratorItem(item) {
			return model.OrderTypeCustomify
		}
	}
	for _, item := range order.LineItems {
		if containsAny(strings.ToLower(item.Title), bulkOrderPhrases) {
			return model.OrderTypeBulk
		}
	}
	return detectByTags(order.Tags)
}

func isDesignServiceItem(item model.OrderLineItem) bool {
	if containsAny(strings.ToLower(item.Title), designServicePhrases) {
		return true
	}
	for _, prop := range item.Properties {
		if strings.Contains(strings.ToLower(prop.Name), "personalization") {
			return true
		}
	}
	return false
}

func isConfiguratorItem(item model.OrderLineItem) bool {
	if strings.Contains(strings.ToLower(item.Title), configuratorToken) {
		return true
	}
	for _, prop := range item.Properties {
		if strings.Contains(strings.ToLower(prop.Name), configuratorToken) {
			return true
		}
	}
	return false
}

// detectByTags is the order-level fallback when no line item matched.
func detectByTags(tags string) model.OrderType {
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		switch {
		case strings.Contains(tag, configuratorToken):
			return model.OrderTypeCustomify
		case strings.Contains(tag, "custom bulk"):
			return model.OrderTypeBulk
		case strings.Contains(tag, "custom design"):
			return model.OrderTypeDesignService
		}
	}
	return ""
}

// CustomQuantity sums units across the custom line items of an order. A
// quantity embedded in the title wins over the numeric quantity field;
// non-custom add-on items do not inflate the count.
func CustomQuantity(order *model.Order) int {
	total := 0
	for _, item := range order.LineItems {
		if !isDesignServiceItem(item) && !isConfiguratorItem(item) &&
			!containsAny(strings.ToLower(item.Title), bulkOrderPhrases) {
			continue
		}
		if m := titleQuantityPattern.FindStringSubmatch(item.Title); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				total += n
				continue
			}
		}
		total += item.Quantity
	}
	return total
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

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
	"strings"

	"github.com/tgfc/fanops/model"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	fieldKeyAliases = map[string]string{
		"name":            "customerName",
		"full name":       "customerName",
		"your name":       "customerName",
		"email":           "customerEmail",
		"e-mail":          "customerEmail",
		"email address":   "customerEmail",
		"organization":    "organization",
		"organisation":    "organization",
		"company":         "organization",
		"band":            "organization",
		"project details": "projectDetails",
		"details":         "projectDetails",
		"message":         "projectDetails",
		"tell us more":    "projectDetails",
		"event date":      "eventDate",
		"date":            "eventDate",
	}
)

// IsFormSender reports whether the sender address belongs to the configured
// set of form-notification senders.
func IsFormSender(fromEmail string, senders []string) bool {
	from := strings.ToLower(strings.TrimSpace(fromEmail))
	for _, sender := range senders {
		if from == strings.ToLower(strings.TrimSpace(sender)) {
			return true
		}
	}
	return false
}

// ParseFormSubmission extracts structured lead data from a form-notification
// email body. Two textual layouts are tried: asterisk-delimited
// "Key: value * Key: value" and one "Key: value" pair per line. When neither
// yields an email address, the whole body is scanned for the first address
// outside the form provider's own domain. The parse is valid only when a
// customer email was extracted; callers must not create a work item from an
// invalid parse.
func ParseFormSubmission(body, providerDomain string) model.FormSubmission {
	text := stripHTML(body)

	sub := model.FormSubmission{}
	if strings.Contains(text, "*") {
		parseSegments(strings.Split(text, "*"), &sub)
	}
	if sub.CustomerEmail == "" {
		parseSegments(strings.Split(text, "\n"), &sub)
	}
	if sub.CustomerEmail == "" {
		sub.CustomerEmail = firstForeignEmail(text, providerDomain)
	}
	if sub.CustomerEmail != "" && !emailPattern.MatchString(sub.CustomerEmail) {
		sub.CustomerEmail = ""
	}
	return sub
}

// parseSegments fills submission fields from "Key: value" segments, keeping
// the first value seen for each field.
func parseSegments(segments []string, sub *model.FormSubmission) {
	for _, segment := range segments {
		key, value, found := strings.Cut(segment, ":")
		if !found {
			continue
		}
		field, known := fieldKeyAliases[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch field {
		case "customerName":
			if sub.CustomerName == "" {
				sub.CustomerName = value
			}
		case "customerEmail":
			if sub.CustomerEmail == "" {
				sub.CustomerEmail = strings.ToLower(value)
			}
		case "organization":
			if sub.Organization == "" {
				sub.Organization = value
			}
		case "projectDetails":
			if sub.ProjectDetails == "" {
				sub.ProjectDetails = value
			}
		case "eventDate":
			if sub.EventDate == "" {
				sub.EventDate = value
			}
		}
	}
}

// firstForeignEmail returns the first embedded email address not belonging to
// the form provider's own domain.
func firstForeignEmail(text, providerDomain string) string {
	providerDomain = strings.ToLower(providerDomain)
	for _, match := range emailPattern.FindAllString(text, -1) {
		address := strings.ToLower(match)
		if providerDomain != "" && strings.HasSuffix(address, "@"+providerDomain) {
			continue
		}
		return address
	}
	return ""
}

func stripHTML(body string) string {
	text := htmlTagPattern.ReplaceAllString(body, "\n")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	return text
}

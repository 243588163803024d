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
)

func TestParseFormSubmissionAsteriskDelimited(t *testing.T) {
	body := "Name: Amy Baker * Email: amy@threadbarepress.com * Organization: Oregon Country Fair * Event Date: 2026-07-10 * Message: 300 fans for the fair"
	sub := ParseFormSubmission(body, "jotform.com")

	assert.True(t, sub.IsValid())
	assert.Equal(t, "Amy Baker", sub.CustomerName)
	assert.Equal(t, "amy@threadbarepress.com", sub.CustomerEmail)
	assert.Equal(t, "Oregon Country Fair", sub.Organization)
	assert.Equal(t, "2026-07-10", sub.EventDate)
	assert.Equal(t, "300 fans for the fair", sub.ProjectDetails)
}

func TestParseFormSubmissionNewlineDelimited(t *testing.T) {
	body := "Name: Amy Baker\nEmail: amy@threadbarepress.com\nOrganization: Oregon Country Fair"
	sub := ParseFormSubmission(body, "jotform.com")

	assert.True(t, sub.IsValid())
	assert.Equal(t, "Amy Baker", sub.CustomerName)
	assert.Equal(t, "amy@threadbarepress.com", sub.CustomerEmail)
	assert.Equal(t, "Oregon Country Fair", sub.Organization)
}

func TestParseFormSubmissionHTMLBody(t *testing.T) {
	body := "<table><tr><td>Name:</td><td>Amy Baker</td></tr><tr><td>Email:</td><td>amy@threadbarepress.com</td></tr></table>"
	sub := ParseFormSubmission(body, "jotform.com")

	assert.True(t, sub.IsValid())
	assert.Equal(t, "amy@threadbarepress.com", sub.CustomerEmail)
}

// When no labeled email field parses, the first embedded address outside the
// form provider's own domain wins.
func TestParseFormSubmissionBodyEmailFallback(t *testing.T) {
	body := "New submission received. Reply to the customer at amy@threadbarepress.com or manage at noreply@jotform.com"
	sub := ParseFormSubmission(body, "jotform.com")

	assert.True(t, sub.IsValid())
	assert.Equal(t, "amy@threadbarepress.com", sub.CustomerEmail)
}

func TestParseFormSubmissionProviderEmailOnly(t *testing.T) {
	body := "New submission received. Manage at noreply@jotform.com"
	sub := ParseFormSubmission(body, "jotform.com")

	assert.False(t, sub.IsValid())
	assert.Empty(t, sub.CustomerEmail)
}

func TestParseFormSubmissionEmpty(t *testing.T) {
	sub := ParseFormSubmission("", "jotform.com")
	assert.False(t, sub.IsValid())
}

// Validity requires only the email; every other field is optional.
func TestParseFormSubmissionEmailOnlyIsValid(t *testing.T) {
	sub := ParseFormSubmission("Email: amy@threadbarepress.com", "jotform.com")
	assert.True(t, sub.IsValid())
	assert.Empty(t, sub.CustomerName)
	assert.Empty(t, sub.Organization)
}

func TestIsFormSender(t *testing.T) {
	senders := []string{"notifications@jotform.com", "noreply@jotform.com"}
	assert.True(t, IsFormSender("notifications@jotform.com", senders))
	assert.True(t, IsFormSender("Notifications@JotForm.com", senders))
	assert.False(t, IsFormSender("amy@threadbarepress.com", senders))
	assert.False(t, IsFormSender("", senders))
}

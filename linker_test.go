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

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/model"
)

func mockLinkingConfig() {
	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://test"},
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
	})
}

func inboundMessage(subject, body, from, conversationID string) *model.InboundMessage {
	return &model.InboundMessage{
		ID:               model.GenerateUUIDWithSuffix("msg"),
		Subject:          subject,
		Body:             model.MessageBody{ContentType: "html", Content: body},
		From:             model.Recipient{EmailAddress: model.EmailAddress{Address: from}},
		ConversationID:   conversationID,
		ReceivedDateTime: time.Now(),
	}
}

func TestExtractOrderNumbersConfidenceOrder(t *testing.T) {
	candidates := extractOrderNumbers("Question about Order #1042", "Also see Ref: 2001 and #3003")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "1042", candidates[0].number)

	numbers := make([]string, len(candidates))
	for i, c := range candidates {
		numbers[i] = c.number
	}
	assert.Contains(t, numbers, "3003")
	assert.Contains(t, numbers, "2001")
}

func TestExtractOrderNumbersShopifyStyle(t *testing.T) {
	candidates := extractOrderNumbers("Re: Order #EU-1042-AB", "")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "EU-1042-AB", candidates[0].number)
}

func TestStripReplyPrefixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Custom fans for wedding", "Custom fans for wedding"},
		{"RE: FWD: Re: Order question", "Order question"},
		{"Fwd: hello", "hello"},
		{"No prefix here", "No prefix here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripReplyPrefixes(tt.in))
	}
}

func TestSubjectMatchesTitle(t *testing.T) {
	assert.True(t, subjectMatchesTitle("Amy Baker (Oregon Country Fair)", "amy baker (oregon country fair)"))
	assert.True(t, subjectMatchesTitle("Oregon Country Fair", "Amy Baker (Oregon Country Fair)"))
	assert.False(t, subjectMatchesTitle("Completely unrelated", "Amy Baker (Oregon Country Fair)"))
	assert.False(t, subjectMatchesTitle("", "anything"))
}

// Strategy 1 must precede strategy 2: a message whose thread already links to
// a work item adopts it even when the subject carries a valid order number
// for a different work item.
func TestResolveThreadBeatsOrderNumber(t *testing.T) {
	mockLinkingConfig()

	mock := &MockDataSource{
		GetLinkedWorkItemByThreadFn: func(_ context.Context, threadID string) (string, error) {
			assert.Equal(t, "conv-1", threadID)
			return "wki_thread", nil
		},
		GetOpenWorkItemByOrderNumberFn: func(_ context.Context, _ string) (*model.WorkItem, error) {
			return &model.WorkItem{WorkItemID: "wki_order"}, nil
		},
	}
	f := &Fanops{datasource: mock}

	msg := inboundMessage("Re: Order #1042", "", "amy@threadbarepress.com", "conv-1")
	link, err := f.resolveWorkItemForEmail(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "wki_thread", link.WorkItemID)
	assert.Equal(t, LinkByThread, link.Strategy)
}

func TestResolveOrderNumberExactMatch(t *testing.T) {
	mockLinkingConfig()

	mock := &MockDataSource{
		GetOpenWorkItemByOrderNumberFn: func(_ context.Context, number string) (*model.WorkItem, error) {
			if number == "1042" {
				return &model.WorkItem{WorkItemID: "wki_order"}, nil
			}
			return nil, nil
		},
	}
	f := &Fanops{datasource: mock}

	link, err := f.resolveWorkItemForEmail(context.Background(), inboundMessage("Order #1042 update", "", "someone@example.com", ""))
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "wki_order", link.WorkItemID)
	assert.Equal(t, LinkByOrderNumber, link.Strategy)
}

func TestResolveRecencyMatch(t *testing.T) {
	mockLinkingConfig()

	mock := &MockDataSource{
		GetRecentByEmailFn: func(_ context.Context, email string, updatedSince time.Time) (*model.WorkItem, error) {
			assert.Equal(t, "amy@threadbarepress.com", email)
			assert.WithinDuration(t, time.Now().AddDate(0, 0, -60), updatedSince, time.Minute)
			return &model.WorkItem{WorkItemID: "wki_recent"}, nil
		},
	}
	f := &Fanops{datasource: mock}

	link, err := f.resolveWorkItemForEmail(context.Background(), inboundMessage("hi", "checking in", "amy@threadbarepress.com", ""))
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "wki_recent", link.WorkItemID)
	assert.Equal(t, LinkByRecency, link.Strategy)
}

func TestResolveSubjectMatch(t *testing.T) {
	mockLinkingConfig()

	mock := &MockDataSource{
		SearchByTitleFn: func(_ context.Context, fragment string) ([]*model.WorkItem, error) {
			if fragment == "Oregon Country Fair fans" {
				return []*model.WorkItem{{WorkItemID: "wki_subject", Title: "Oregon Country Fair fans"}}, nil
			}
			return nil, nil
		},
	}
	f := &Fanops{datasource: mock}

	link, err := f.resolveWorkItemForEmail(context.Background(), inboundMessage("Re: Oregon Country Fair fans", "", "new@example.com", ""))
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "wki_subject", link.WorkItemID)
	assert.Equal(t, LinkBySubject, link.Strategy)
}

// No strategy hitting leaves the email for manual triage; the cascade never
// guesses.
func TestResolveNoMatch(t *testing.T) {
	mockLinkingConfig()

	f := &Fanops{datasource: &MockDataSource{}}
	link, err := f.resolveWorkItemForEmail(context.Background(), inboundMessage("hi", "no identifiers here", "new@example.com", ""))
	require.NoError(t, err)
	assert.Nil(t, link)
}

// A short remainder after stripping reply prefixes must not subject-match.
func TestResolveSubjectTooShort(t *testing.T) {
	mockLinkingConfig()

	called := false
	mock := &MockDataSource{
		SearchByTitleFn: func(_ context.Context, _ string) ([]*model.WorkItem, error) {
			called = true
			return nil, nil
		},
	}
	f := &Fanops{datasource: mock}

	link, err := f.resolveWorkItemForEmail(context.Background(), inboundMessage("Re: Hi", "", "new@example.com", ""))
	require.NoError(t, err)
	assert.Nil(t, link)
	assert.False(t, called)
}

func TestAutoLinkWindowForDesignService(t *testing.T) {
	mockLinkingConfig()

	orderCreated := time.Now().AddDate(0, 0, -10)
	var gotStart, gotEnd time.Time
	mock := &MockDataSource{
		LinkUnlinkedByEmailWindowFn: func(_ context.Context, workItemID, fromEmail string, windowStart, windowEnd time.Time) (int64, error) {
			gotStart, gotEnd = windowStart, windowEnd
			return 3, nil
		},
	}
	f := &Fanops{datasource: mock}

	linked, err := f.autoLinkCommunications(context.Background(), "wki_1", "amy@threadbarepress.com", orderCreated, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), linked)
	assert.WithinDuration(t, orderCreated.AddDate(0, 0, -30), gotStart, time.Minute)
	// The design conversation continues after the fee order posts, so the
	// window's upper bound is now rather than order date plus thirty days.
	assert.WithinDuration(t, time.Now(), gotEnd, time.Minute)
}

func TestAutoLinkWindowForProductionOrder(t *testing.T) {
	mockLinkingConfig()

	orderCreated := time.Now().AddDate(0, 0, -5)
	var gotEnd time.Time
	mock := &MockDataSource{
		LinkUnlinkedByEmailWindowFn: func(_ context.Context, _, _ string, _, windowEnd time.Time) (int64, error) {
			gotEnd = windowEnd
			return 0, nil
		},
	}
	f := &Fanops{datasource: mock}

	_, err := f.autoLinkCommunications(context.Background(), "wki_1", "amy@threadbarepress.com", orderCreated, false)
	require.NoError(t, err)
	assert.WithinDuration(t, orderCreated.AddDate(0, 0, 30), gotEnd, time.Minute)
}

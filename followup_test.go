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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgfc/fanops/model"
)

func TestNextFollowUpWaitingSuppresses(t *testing.T) {
	mockLinkingConfig()
	assert.Nil(t, NextFollowUp(model.StatusInDesign, true, time.Now()))
}

func TestNextFollowUpTerminalStatus(t *testing.T) {
	mockLinkingConfig()
	for _, status := range []string{model.StatusClosed, model.StatusClosedWon, model.StatusClosedLost, model.StatusClosedEventCancelled} {
		assert.Nil(t, NextFollowUp(status, false, time.Now()), status)
	}
}

// Recompute is idempotent: the same inputs always produce the same timestamp.
func TestNextFollowUpIdempotent(t *testing.T) {
	mockLinkingConfig()

	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := NextFollowUp(model.StatusNewInquiry, false, from)
	second := NextFollowUp(model.StatusNewInquiry, false, from)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.True(t, first.Equal(*second))
}

func TestNextFollowUpCadenceGroups(t *testing.T) {
	mockLinkingConfig()

	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		status string
		days   int
	}{
		{model.StatusNewInquiry, 2},
		{model.StatusInfoSent, 2},
		{model.StatusFutureEventMonitoring, 30},
		{model.StatusDesignFeeSent, 5},
		{model.StatusInvoiceSent, 5},
		{model.StatusInDesign, 3},
		{model.StatusProofSent, 3},
		{model.StatusNeedsDesignReview, 3},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			next := NextFollowUp(tt.status, false, from)
			require.NotNil(t, next)
			assert.True(t, next.Equal(from.AddDate(0, 0, tt.days)))
		})
	}
}

// Batched and shipped items are out of the contact loop.
func TestNextFollowUpNoCadence(t *testing.T) {
	mockLinkingConfig()
	assert.Nil(t, NextFollowUp(model.StatusBatched, false, time.Now()))
	assert.Nil(t, NextFollowUp(model.StatusShipped, false, time.Now()))
}

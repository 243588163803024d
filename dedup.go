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

// Dedup strategy names, reported to callers so repeated imports of the same
// payload report the same strategy every time.
const (
	DedupByProviderMessageID = "provider_message_id"
	DedupByInternetMessageID = "internet_message_id"
	DedupByFingerprint       = "fingerprint"
)

// findDuplicateCommunication checks the three dedup strategies in priority
// order and returns the existing communication plus the strategy that hit, or
// (nil, "") when the message is new. Provider id is checked first; the
// internet message id is more durable across provider re-syncs; the
// fingerprint catches delivery duplicates lacking stable ids.
func (f *Fanops) findDuplicateCommunication(ctx context.Context, msg *model.InboundMessage) (*model.Communication, string, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, "", err
	}

	if msg.ID != "" {
		existing, err := f.datasource.GetCommunicationByProviderMessageID(ctx, msg.ID)
		if err != nil {
			return nil, "", err
		}
		if existing != nil {
			return existing, DedupByProviderMessageID, nil
		}
	}

	if msg.InternetMessageID != "" {
		existing, err := f.datasource.GetCommunicationByInternetMessageID(ctx, msg.InternetMessageID)
		if err != nil {
			return nil, "", err
		}
		if existing != nil {
			return existing, DedupByInternetMessageID, nil
		}
	}

	window := time.Duration(cfg.Linking.FingerprintWindowSeconds) * time.Second
	existing, err := f.datasource.GetCommunicationByFingerprint(ctx, msg.From.EmailAddress.Address, msg.Subject, msg.ReceivedDateTime, window)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return existing, DedupByFingerprint, nil
	}
	return nil, "", nil
}

// CleanupDuplicateCommunications removes historical duplicate rows, keeping
// the earliest-created record of each duplicate group. Returns the number of
// rows deleted. This is the only path that ever deletes communications.
func (f *Fanops) CleanupDuplicateCommunications(ctx context.Context, limit int) (int64, error) {
	groups, err := f.datasource.FindDuplicateCommunications(ctx, limit)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		// Groups are ordered earliest first; the head survives.
		doomed = append(doomed, group[1:]...)
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return f.datasource.DeleteCommunications(ctx, doomed)
}

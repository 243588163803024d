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
	"regexp"
	"strings"
	"time"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/model"
)

// Link strategy names, recorded as provenance when a link lands.
const (
	LinkByThread      = "thread"
	LinkByOrderNumber = "order_number"
	LinkByRecency     = "recency"
	LinkBySubject     = "subject"
)

// orderNumberCandidate is one extracted order-number string with the
// confidence tier its pattern carries.
type orderNumberCandidate struct {
	number     string
	confidence int // Higher wins; candidates are tried in descending order.
}

var (
	orderHashPattern    = regexp.MustCompile(`(?i)Order\s*#\s*(\d{3,6})`)
	shopifyStylePattern = regexp.MustCompile(`(?i)Order\s*#\s*([A-Z]{1,3}-\d{3,6}-[A-Z0-9]{1,4})`)
	bareHashPattern     = regexp.MustCompile(`#(\d{3,6})`)
	refPattern          = regexp.MustCompile(`(?i)Ref:?\s*(\d{3,6})`)

	replyPrefixPattern = regexp.MustCompile(`(?i)^((re|fwd|fw)\s*:\s*)+`)
)

// extractOrderNumbers scans the subject then body for order-number patterns
// and returns candidates ordered by descending confidence. Subject hits of a
// pattern rank above body hits of the same pattern.
func extractOrderNumbers(subject, body string) []orderNumberCandidate {
	var out []orderNumberCandidate
	seen := make(map[string]bool)

	add := func(number string, confidence int) {
		if number == "" || seen[number] {
			return
		}
		seen[number] = true
		out = append(out, orderNumberCandidate{number: number, confidence: confidence})
	}

	scan := func(text string, inSubject bool) {
		for _, m := range shopifyStylePattern.FindAllStringSubmatch(text, -1) {
			add(m[1], 100)
		}
		for _, m := range orderHashPattern.FindAllStringSubmatch(text, -1) {
			add(m[1], 90)
		}
		bareConfidence, refConfidence := 50, 40
		if !inSubject {
			bareConfidence, refConfidence = 30, 20
		}
		for _, m := range bareHashPattern.FindAllStringSubmatch(text, -1) {
			add(m[1], bareConfidence)
		}
		for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
			add(m[1], refConfidence)
		}
	}

	scan(subject, true)
	scan(body, false)

	// Insertion order already follows confidence within each scan; a stable
	// sort keeps subject candidates ahead of equal body candidates.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].confidence > out[j-1].confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// stripReplyPrefixes removes leading Re:/Fwd: chains from a subject.
func stripReplyPrefixes(subject string) string {
	return strings.TrimSpace(replyPrefixPattern.ReplaceAllString(strings.TrimSpace(subject), ""))
}

// subjectMatchesTitle reports whether a cleaned subject and a work item title
// are close enough to link. Containment either way is a match; otherwise the
// edit distance must stay within 25% of the longer string.
func subjectMatchesTitle(subject, title string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	t := strings.ToLower(strings.TrimSpace(title))
	if s == "" || t == "" {
		return false
	}
	if strings.Contains(s, t) || strings.Contains(t, s) {
		return true
	}
	distance := levenshtein.DistanceForStrings([]rune(s), []rune(t), levenshtein.DefaultOptions)
	maxLength := len(s)
	if len(t) > maxLength {
		maxLength = len(t)
	}
	return distance <= maxLength/4
}

// LinkResult reports where the cascade landed for an inbound email.
type LinkResult struct {
	WorkItemID string `json:"work_item_id"`
	Strategy   string `json:"strategy"`
}

// resolveWorkItemForEmail runs the linking cascade for an unlinked inbound
// email: thread adoption, order-number extraction, sender recency, then
// subject similarity. The first successful strategy wins; no match returns
// nil so the email stays in manual triage rather than guessing.
func (f *Fanops) resolveWorkItemForEmail(ctx context.Context, msg *model.InboundMessage) (*LinkResult, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if msg.ConversationID != "" {
		workItemID, err := f.datasource.GetLinkedWorkItemByThreadID(ctx, msg.ConversationID)
		if err != nil {
			return nil, err
		}
		if workItemID != "" {
			return &LinkResult{WorkItemID: workItemID, Strategy: LinkByThread}, nil
		}
	}

	item, err := f.matchByOrderNumber(ctx, msg.Subject, msg.Body.Content)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return &LinkResult{WorkItemID: item.WorkItemID, Strategy: LinkByOrderNumber}, nil
	}

	sender := msg.From.EmailAddress.Address
	if sender != "" {
		since := time.Now().AddDate(0, 0, -cfg.Linking.RecencyWindowDays)
		recent, err := f.datasource.GetRecentOpenWorkItemByEmail(ctx, sender, since)
		if err != nil {
			return nil, err
		}
		if recent != nil {
			return &LinkResult{WorkItemID: recent.WorkItemID, Strategy: LinkByRecency}, nil
		}
	}

	cleaned := stripReplyPrefixes(msg.Subject)
	if len(cleaned) > cfg.Linking.MinSubjectMatchLength {
		matched, err := f.matchBySubject(ctx, cleaned)
		if err != nil {
			return nil, err
		}
		if matched != nil {
			return &LinkResult{WorkItemID: matched.WorkItemID, Strategy: LinkBySubject}, nil
		}
	}

	return nil, nil
}

// matchByOrderNumber tries each extracted order number in confidence order
// against open work items: exact order number, then fuzzy-contains on order
// number, then fuzzy-contains on title.
func (f *Fanops) matchByOrderNumber(ctx context.Context, subject, body string) (*model.WorkItem, error) {
	for _, candidate := range extractOrderNumbers(subject, body) {
		item, err := f.datasource.GetOpenWorkItemByOrderNumber(ctx, candidate.number)
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}

		items, err := f.datasource.SearchOpenWorkItemsByOrderNumber(ctx, candidate.number)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items[0], nil
		}

		items, err = f.datasource.SearchOpenWorkItemsByTitle(ctx, candidate.number)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items[0], nil
		}
	}
	return nil, nil
}

func (f *Fanops) matchBySubject(ctx context.Context, cleaned string) (*model.WorkItem, error) {
	items, err := f.datasource.SearchOpenWorkItemsByTitle(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items[0], nil
	}

	// Fall back to a similarity pass over the open titles the fragment query
	// missed, e.g. when the subject paraphrases the title.
	candidates, err := f.datasource.SearchOpenWorkItemsByTitle(ctx, firstWord(cleaned))
	if err != nil {
		return nil, err
	}
	for _, item := range candidates {
		if subjectMatchesTitle(cleaned, item.Title) {
			return item, nil
		}
	}
	return nil, nil
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

// autoLinkCommunications bulk-attaches unlinked inbound emails from the
// order's customer within a window around the order creation time. For design
// service orders the upper bound is now, since the design conversation keeps
// going after the fee order posts.
func (f *Fanops) autoLinkCommunications(ctx context.Context, workItemID, customerEmail string, orderCreatedAt time.Time, designService bool) (int64, error) {
	if customerEmail == "" {
		return 0, nil
	}
	cfg, err := config.Fetch()
	if err != nil {
		return 0, err
	}
	window := time.Duration(cfg.Linking.AutoLinkWindowDays) * 24 * time.Hour
	start := orderCreatedAt.Add(-window)
	end := orderCreatedAt.Add(window)
	if designService {
		end = time.Now()
	}
	return f.datasource.LinkUnlinkedByEmailWindow(ctx, workItemID, customerEmail, start, end)
}

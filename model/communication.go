package model

import "time"

// Direction of a communication relative to the business mailbox.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Triage statuses for an inbound communication.
const (
	TriageUntriaged = "untriaged" // Awaiting manual or automatic classification.
	TriageLinked    = "linked"    // Attached to a work item.
	TriageArchived  = "archived"  // Filtered out (newsletter, ignored sender, manual archive).
)

// Communication categories assigned during import.
const (
	CategoryCustomer   = "customer"
	CategoryFormLead   = "form_lead"
	CategoryNewsletter = "newsletter"
	CategoryIgnored    = "ignored"
)

// Communication is one imported email message. It is created once on import;
// only work_item_id and triage_status change afterwards.
type Communication struct {
	ID                int64      `json:"-"`
	CommunicationID   string     `json:"communication_id"`
	Direction         string     `json:"direction"`
	FromEmail         string     `json:"from_email"`
	ToEmails          []string   `json:"to_emails"`
	Subject           string     `json:"subject"`
	BodyHTML          string     `json:"body_html,omitempty"`
	BodyPreview       string     `json:"body_preview,omitempty"`
	ReceivedAt        *time.Time `json:"received_at,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	ProviderMessageID string     `json:"provider_message_id"`
	InternetMessageID string     `json:"internet_message_id"`
	ProviderThreadID  string     `json:"provider_thread_id,omitempty"`
	WorkItemID        *string    `json:"work_item_id,omitempty"`
	TriageStatus      string     `json:"triage_status"`
	Category          string     `json:"category"`
	CreatedAt         time.Time  `json:"created_at"`
}

// InboundMessage mirrors the shape the mail source (Microsoft Graph) reports
// for an inbound message.
type InboundMessage struct {
	ID                string    `json:"id"`
	InternetMessageID string    `json:"internetMessageId"`
	Subject           string    `json:"subject"`
	From              Recipient `json:"from"`
	ToRecipients      []Recipient `json:"toRecipients"`
	Body              MessageBody `json:"body"`
	BodyPreview       string    `json:"bodyPreview"`
	ReceivedDateTime  time.Time `json:"receivedDateTime"`
	SentDateTime      time.Time `json:"sentDateTime"`
	ConversationID    string    `json:"conversationId"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type MessageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// DomainFilter is a database-stored rule for sender-domain categorization.
// Matching inbound mail is archived with the filter's category instead of
// entering triage.
type DomainFilter struct {
	ID        int64     `json:"-"`
	FilterID  string    `json:"filter_id"`
	Domain    string    `json:"domain"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

package model

// FormSubmission is the structured lead data extracted from a third-party
// form-notification email.
type FormSubmission struct {
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	Organization   string `json:"organization"`
	ProjectDetails string `json:"project_details"`
	EventDate      string `json:"event_date"`
}

// IsValid reports whether the parse produced a usable lead. A syntactically
// valid customer email is the only requirement; every other field is
// optional. An invalid parse must not create a work item.
func (f FormSubmission) IsValid() bool {
	return f.CustomerEmail != ""
}

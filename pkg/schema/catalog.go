package schema

// CatalogEvent is one business event in the closed catalog. Type is the wire
// value referenced by rules and trigger/event payloads; Name is the display
// label denormalized into EventData.Label.
type CatalogEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// EventCategory groups catalog events for rule-building UIs.
type EventCategory struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Events []CatalogEvent `json:"events"`
}

// eventCatalog is the closed set of valid eventType values. Reference data
// owned by the catalog collaborator; treated as read-only here.
var eventCatalog = []EventCategory{
	{
		ID:   "engagement",
		Name: "Engagement",
		Events: []CatalogEvent{
			{Type: "page_view", Name: "Page View"},
			{Type: "email_opened", Name: "Email Opened"},
			{Type: "email_link_clicked", Name: "Email Link Clicked"},
			{Type: "form_submitted", Name: "Form Submitted"},
		},
	},
	{
		ID:   "listings",
		Name: "Listings",
		Events: []CatalogEvent{
			{Type: "listing_clicked", Name: "Listing Clicked"},
			{Type: "listing_viewed", Name: "Listing Viewed"},
			{Type: "offering_doc_downloaded", Name: "Offering Doc Downloaded"},
			{Type: "investment_started", Name: "Investment Started"},
		},
	},
	{
		ID:   "webinars",
		Name: "Webinars",
		Events: []CatalogEvent{
			{Type: "webinar_signup", Name: "Webinar Signup"},
			{Type: "webinar_attended", Name: "Webinar Attended"},
		},
	},
}

// Catalog returns the grouped event catalog.
func Catalog() []EventCategory {
	return eventCatalog
}

// EventName resolves the display name for an eventType value.
// Returns false when the value is not in the catalog.
func EventName(eventType string) (string, bool) {
	for _, cat := range eventCatalog {
		for _, ev := range cat.Events {
			if ev.Type == eventType {
				return ev.Name, true
			}
		}
	}
	return "", false
}

// KnownEvent reports whether eventType is in the catalog.
func KnownEvent(eventType string) bool {
	_, ok := EventName(eventType)
	return ok
}

// Package cascade deletes an aggregate root together with the records that
// reference it, one dependent collection at a time.
package cascade

import "github.com/vietddude/tourdesk/internal/core/domain"

const AggregateTrip = "trip"

// Step deletes every record of Collection whose Column equals the aggregate ID.
type Step struct {
	Name       string
	Collection string
	Column     string
}

// Plan is an ordered list of steps for one aggregate. The root deletion is
// always the last step.
type Plan struct {
	Aggregate   string
	AggregateID string
	Steps       []Step
}

// TripPlan returns the deletion plan for a trip: quotations, bookings,
// itinerary days and included services, then the trip itself.
func TripPlan(tripID string) Plan {
	return Plan{
		Aggregate:   AggregateTrip,
		AggregateID: tripID,
		Steps: []Step{
			{Name: "quotations", Collection: domain.CollectionQuotations, Column: "trip_id"},
			{Name: "bookings", Collection: domain.CollectionBookings, Column: "trip_id"},
			{Name: "itinerary days", Collection: domain.CollectionItineraryDays, Column: "trip_id"},
			{Name: "included services", Collection: domain.CollectionIncludedServices, Column: "trip_id"},
			{Name: "trip", Collection: domain.CollectionTrips, Column: "id"},
		},
	}
}

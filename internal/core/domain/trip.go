package domain

import (
	"time"
)

// Collection names of the remote record store.
const (
	CollectionTrips            = "trips"
	CollectionQuotations       = "quotations"
	CollectionBookings         = "bookings"
	CollectionItineraryDays    = "itinerary_days"
	CollectionIncludedServices = "included_services"
	CollectionProfiles         = "profiles"
	CollectionDocuments        = "documents"
	CollectionOrphanedObjects  = "orphaned_objects"
)

// Trip is the aggregate root for quotations, bookings, itinerary days and
// included services.
type Trip struct {
	ID          string
	Title       string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Cover       *AssetRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItineraryDay belongs to exactly one trip.
type ItineraryDay struct {
	ID          string
	TripID      string
	DayNumber   int
	Title       string
	Description string
}

// IncludedService belongs to exactly one trip.
type IncludedService struct {
	ID     string
	TripID string
	Name   string
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking references a trip.
type Booking struct {
	ID       string
	TripID   string
	Customer string
	Status   BookingStatus
}

// Quotation references a trip.
type Quotation struct {
	ID       string
	TripID   string
	Customer string
	Total    float64
	Currency string
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TourOverview is the header data of a trip. Dates are ISO strings and may be empty.
type TourOverview struct {
	TripTitle          string   `json:"tripTitle"`
	Duration           string   `json:"duration"`
	DepartureFrom      string   `json:"departureFrom"`
	Destination        string   `json:"destination"`
	DepartureDate      string   `json:"departureDate"`
	ArrivalDate        string   `json:"arrivalDate"`
	NumberOfTravellers int      `json:"numberOfTravellers"`
	TourCode           string   `json:"tourCode"`
	TourType           string   `json:"tourType"`
	Highlights         []string `json:"highlights"`
}

// Period of a day.
type Period string

const (
	Morning   Period = "Morning"
	Afternoon Period = "Afternoon"
	Evening   Period = "Evening"
)

// TimelineItem lists what happens during one period of a day.
type TimelineItem struct {
	ID         string   `json:"id"`
	Period     Period   `json:"period"`
	Activities []string `json:"activities"`
}

// Transport is a single leg travelled during a day.
type Transport struct {
	Type    string `json:"type"`
	From    string `json:"from"`
	To      string `json:"to"`
	Time    string `json:"time"`
	Details string `json:"details"`
}

// Meals booked for a day.
type Meals struct {
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

// DayItinerary is one day of the daily plan.
type DayItinerary struct {
	ID             string         `json:"id"`
	DayNumber      int            `json:"dayNumber"`
	Date           string         `json:"date"`
	Title          string         `json:"title"`
	City           string         `json:"city"`
	Timeline       []TimelineItem `json:"timeline"`
	Transportation []Transport    `json:"transportation"`
	Meals          Meals          `json:"meals"`
	Accommodation  string         `json:"accommodation"`
}

// Flight booked for the trip.
type Flight struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Airline         string `json:"airline"`
	FlightNumber    string `json:"flightNumber"`
	OriginCity      string `json:"originCity"`
	OriginCode      string `json:"originCode"`
	DestinationCity string `json:"destinationCity"`
	DestinationCode string `json:"destinationCode"`
	Notes           string `json:"notes"`
}

// Hotel stay.
type Hotel struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	City             string          `json:"city"`
	Address          string          `json:"address"`
	CheckIn          string          `json:"checkIn"`
	CheckOut         string          `json:"checkOut"`
	Nights           int             `json:"nights"`
	RoomType         string          `json:"roomType"`
	Rooms            int             `json:"rooms"`
	Rating           int             `json:"rating"`
	PricePerNight    decimal.Decimal `json:"pricePerNight"`
	Currency         string          `json:"currency"`
	ContactNumber    string          `json:"contactNumber"`
	Email            string          `json:"email"`
	BookingReference string          `json:"bookingReference"`
	Amenities        []string        `json:"amenities"`
	Notes            string          `json:"notes"`
}

// InstallmentStatus is the payment state of an installment.
type InstallmentStatus string

const (
	StatusPending InstallmentStatus = "Pending"
	StatusPaid    InstallmentStatus = "Paid"
	StatusOverdue InstallmentStatus = "Overdue"
)

// Installment is one scheduled payment.
type Installment struct {
	ID                string            `json:"id"`
	InstallmentNumber int               `json:"installmentNumber"`
	Amount            decimal.Decimal   `json:"amount"`
	DueDate           string            `json:"dueDate"`
	Description       string            `json:"description"`
	Status            InstallmentStatus `json:"status"`
	PaymentMethod     string            `json:"paymentMethod"`
	Notes             string            `json:"notes"`
}

// Fee is an extra charge outside the installment schedule.
type Fee struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PaymentPlan describes how the trip is paid.
type PaymentPlan struct {
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	Currency             string          `json:"currency"`
	TCSCollected         bool            `json:"tcsCollected"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
	Installments         []Installment   `json:"installments"`
	PaymentTerms         string          `json:"paymentTerms"`
	RefundPolicy         string          `json:"refundPolicy"`
	AdditionalFees       []Fee           `json:"additionalFees"`
}

// Inclusion is an included or excluded service. Entries without Details are not shown.
type Inclusion struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Count          int    `json:"count"`
	Details        string `json:"details"`
	StatusComments string `json:"statusComments"`
}

// NoteType selects the styling of an important note.
type NoteType string

const (
	NoteInfo      NoteType = "info"
	NoteWarning   NoteType = "warning"
	NoteImportant NoteType = "important"
)

// Note is an important remark printed after the inclusions.
type Note struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        NoteType `json:"type"`
}

// InclusionsExclusions groups what the price covers and what it does not.
type InclusionsExclusions struct {
	Inclusions     []Inclusion `json:"inclusions"`
	Exclusions     []Inclusion `json:"exclusions"`
	ImportantNotes []Note      `json:"importantNotes"`
	TransferPolicy string      `json:"transferPolicy"`
}

// Activity is a row of the activity table.
type Activity struct {
	ID           string `json:"id"`
	City         string `json:"city"`
	Activity     string `json:"activity"`
	Type         string `json:"type"`
	TimeRequired string `json:"timeRequired"`
}

// VisaDetails of the trip.
type VisaDetails struct {
	VisaType       string `json:"visaType"`
	Validity       string `json:"validity"`
	ProcessingDate string `json:"processingDate"`
}

// Snapshot is the read-only view of an itinerary consumed by the export pipeline.
type Snapshot struct {
	TourOverview         TourOverview         `json:"tourOverview"`
	DailyItinerary       []DayItinerary       `json:"dailyItinerary"`
	Hotels               []Hotel              `json:"hotels"`
	PaymentPlan          PaymentPlan          `json:"paymentPlan"`
	InclusionsExclusions InclusionsExclusions `json:"inclusionsExclusions"`
}

// Itinerary is the full persisted record.
type Itinerary struct {
	ID                   string               `json:"id"`
	UpdatedAt            time.Time            `json:"updatedAt"`
	TourOverview         TourOverview         `json:"tourOverview"`
	DailyItinerary       []DayItinerary       `json:"dailyItinerary"`
	Flights              []Flight             `json:"flights"`
	Hotels               []Hotel              `json:"hotels"`
	PaymentPlan          PaymentPlan          `json:"paymentPlan"`
	InclusionsExclusions InclusionsExclusions `json:"inclusionsExclusions"`
	Activities           []Activity           `json:"activities"`
	VisaDetails          VisaDetails          `json:"visaDetails"`
}

// Snapshot returns the export view of it. Slices are shared; use Clone first
// when the result must not alias it.
func (it Itinerary) Snapshot() Snapshot {
	return Snapshot{
		TourOverview:         it.TourOverview,
		DailyItinerary:       it.DailyItinerary,
		Hotels:               it.Hotels,
		PaymentPlan:          it.PaymentPlan,
		InclusionsExclusions: it.InclusionsExclusions,
	}
}

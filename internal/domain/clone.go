package domain

import "slices"

// Clone returns a deep copy of it.
func (it Itinerary) Clone() Itinerary {
	out := it
	out.TourOverview = it.TourOverview.clone()
	out.DailyItinerary = cloneDays(it.DailyItinerary)
	out.Flights = slices.Clone(it.Flights)
	out.Hotels = cloneHotels(it.Hotels)
	out.PaymentPlan = it.PaymentPlan.clone()
	out.InclusionsExclusions = it.InclusionsExclusions.clone()
	out.Activities = slices.Clone(it.Activities)
	return out
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		TourOverview:         s.TourOverview.clone(),
		DailyItinerary:       cloneDays(s.DailyItinerary),
		Hotels:               cloneHotels(s.Hotels),
		PaymentPlan:          s.PaymentPlan.clone(),
		InclusionsExclusions: s.InclusionsExclusions.clone(),
	}
}

func (t TourOverview) clone() TourOverview {
	t.Highlights = slices.Clone(t.Highlights)
	return t
}

func cloneDays(days []DayItinerary) []DayItinerary {
	if days == nil {
		return nil
	}
	out := make([]DayItinerary, len(days))
	for i, d := range days {
		d.Transportation = slices.Clone(d.Transportation)
		if d.Timeline != nil {
			timeline := make([]TimelineItem, len(d.Timeline))
			for j, item := range d.Timeline {
				item.Activities = slices.Clone(item.Activities)
				timeline[j] = item
			}
			d.Timeline = timeline
		}
		out[i] = d
	}
	return out
}

func cloneHotels(hotels []Hotel) []Hotel {
	if hotels == nil {
		return nil
	}
	out := make([]Hotel, len(hotels))
	for i, h := range hotels {
		h.Amenities = slices.Clone(h.Amenities)
		out[i] = h
	}
	return out
}

func (p PaymentPlan) clone() PaymentPlan {
	p.Installments = slices.Clone(p.Installments)
	p.AdditionalFees = slices.Clone(p.AdditionalFees)
	return p
}

func (ie InclusionsExclusions) clone() InclusionsExclusions {
	ie.Inclusions = slices.Clone(ie.Inclusions)
	ie.Exclusions = slices.Clone(ie.Exclusions)
	ie.ImportantNotes = slices.Clone(ie.ImportantNotes)
	return ie
}

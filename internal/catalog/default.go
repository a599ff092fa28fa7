package catalog

// Default returns the built-in BookBot Clinic catalog. It is used whenever no
// override has been published to the catalog store.
func Default() *Catalog {
	return &Catalog{
		ClinicName: "BookBot Clinic",
		Services: []Service{
			{Name: "General Consultation", DurationMinutes: 30, PriceSGD: 60},
			{Name: "Dental Cleaning", DurationMinutes: 45, PriceSGD: 120},
			{Name: "Physiotherapy", DurationMinutes: 60, PriceSGD: 150},
			{Name: "Vaccination", DurationMinutes: 15, PriceSGD: 40},
		},
		Locations: []Location{
			{
				Name:    "Raffles Place",
				Address: "1 Raffles Place, Singapore 048616",
				Hours:   Hours{MonFri: "09:00-18:00", Sat: "09:00-13:00", Sun: "closed"},
			},
			{
				Name:    "Orchard",
				Address: "200 Orchard Rd, Singapore 238852",
				Hours:   Hours{MonFri: "10:00-19:00", Sat: "10:00-14:00", Sun: "closed"},
			},
			{
				Name:    "Tampines",
				Address: "10 Tampines Central 1, Singapore 529536",
				Hours:   Hours{MonFri: "09:00-18:30", Sat: "09:00-13:00", Sun: "closed"},
			},
		},
		TimePolicy: "Appointments are scheduled in 15-minute increments within location hours.",
		DatePolicy: "Bookings allowed up to 60 days in advance.",
	}
}

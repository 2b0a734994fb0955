package domain

// obs builds a minimal observation for pairing tests.
func obs(entry EntryType, id, site string, elapsed, flow string) Observation {
	return Observation{
		EntryType:      entry,
		SiteID:         id,
		SiteName:       site,
		Officers:       []string{"Obed"},
		Driver:         "Kofi",
		Date:           "2025-03-01",
		Time:           "08:00",
		ElapsedMinutes: ParseNumber(elapsed),
		FlowRate:       ParseNumber(flow),
	}
}

func testReference() Reference {
	return Reference{
		Sites: []Site{
			{ID: "1", Name: "Kaneshie First Light"},
			{ID: "4", Name: "La"},
		},
		Officers:       []string{"Obed", "Clement"},
		Weather:        []string{"Sunny", "Cloudy"},
		WindDirections: []string{"N", "NE", "E"},
	}
}

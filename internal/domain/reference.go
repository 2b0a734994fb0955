package domain

// Site is a monitoring location.
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reference holds the option lists offered to data-entry clients.
type Reference struct {
	Sites          []Site   `json:"sites"`
	Officers       []string `json:"officers"`
	Weather        []string `json:"weather"`
	WindDirections []string `json:"wind_directions"`
}

// SiteByID looks up a site by identifier.
func (r Reference) SiteByID(id string) (Site, bool) {
	for _, s := range r.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

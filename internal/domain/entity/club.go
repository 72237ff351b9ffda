package entity

// Club is a student club. RepresentativeID holds the single representative.
type Club struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	RepresentativeID string `json:"representativeId"`
}

// FindClub returns the club with the given id, or nil
func FindClub(clubs []Club, id string) *Club {
	for i := range clubs {
		if clubs[i].ID == id {
			return &clubs[i]
		}
	}
	return nil
}

// ClubsRepresentedBy returns the clubs whose representative is userID
func ClubsRepresentedBy(clubs []Club, userID string) []Club {
	var out []Club
	for _, c := range clubs {
		if c.RepresentativeID != "" && c.RepresentativeID == userID {
			out = append(out, c)
		}
	}
	return out
}

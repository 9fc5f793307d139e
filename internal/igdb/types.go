// Package igdb is a client for the IGDB v4 API, the external game metadata service.
package igdb

// Cover is the expanded cover reference of a game (requested as cover.image_id).
type Cover struct {
	ID      int64  `json:"id"`
	ImageID string `json:"image_id"`
}

// Company is the expanded company of an involved-company record.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InvolvedCompany links a game to a company. Only the detail query expands Company.
type InvolvedCompany struct {
	ID      int64   `json:"id"`
	Company Company `json:"company"`
}

// Genre is the expanded genre of a game.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Game is a raw games endpoint row.
type Game struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Summary           string            `json:"summary,omitempty"`
	FirstReleaseDate  *int64            `json:"first_release_date,omitempty"`
	Cover             *Cover            `json:"cover,omitempty"`
	Franchises        []int64           `json:"franchises,omitempty"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies,omitempty"`
	Genres            []Genre           `json:"genres,omitempty"`
}

// Package info builds the details card for a clicked country.
package info

import (
	"fmt"

	"github.com/biter777/countries"

	"github.com/okian/happymap/internal/domain/model"
)

// Hint is shown under every card.
const Hint = "Click another country on the map to compare its trend."

// Card is the info panel content for one row.
type Card struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	Year    int    `json:"year"`
	Score   string `json:"score"`
	GDP     string `json:"gdp"`
	ISO2    string `json:"iso2,omitempty"`
	ISO3    string `json:"iso3,omitempty"`
	Hint    string `json:"hint"`
}

// Render formats r. ISO codes are filled when the country name resolves.
func Render(r model.Row) Card {
	c := Card{
		Country: r.Country,
		Region:  r.Region,
		Year:    r.Year,
		Score:   fmt.Sprintf("%.2f", r.Score),
		GDP:     fmt.Sprintf("%.2f", r.GDP),
		Hint:    Hint,
	}
	if code := countries.ByName(r.Country); code.IsValid() {
		c.ISO2 = code.Alpha2()
		c.ISO3 = code.Alpha3()
	}
	return c
}

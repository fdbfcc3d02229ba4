package aggregate

import (
	"fmt"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// UnknownEmail is shown when a user has no user_data row.
const UnknownEmail = "Desconhecido"

// PersonDetail is the display form of a user in drill-down lists and CSV.
type PersonDetail struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Posto string `json:"posto"`
	Org   string `json:"org"`
}

// Directory resolves mess hall names and person details by id.
// The zero value is usable and resolves everything to placeholders.
type Directory struct {
	halls  map[int64]domain.MessHall
	people map[string]PersonDetail
}

// NewDirectory indexes reference rows. Military rows are joined to users
// through nr_ordem; users without a match keep empty name/posto/org.
func NewDirectory(halls []domain.MessHall, users []domain.UserData, military []domain.MilitaryData) Directory {
	d := Directory{
		halls:  make(map[int64]domain.MessHall, len(halls)),
		people: make(map[string]PersonDetail, len(users)),
	}
	for _, h := range halls {
		d.halls[h.ID] = h
	}
	mil := make(map[string]domain.MilitaryData, len(military))
	for _, m := range military {
		mil[m.NrOrdem] = m
	}
	for _, u := range users {
		p := PersonDetail{ID: u.ID, Email: u.Email}
		if p.Email == "" {
			p.Email = UnknownEmail
		}
		if u.NrOrdem != nil {
			if m, ok := mil[*u.NrOrdem]; ok {
				p.Name = m.NmGuerra
				if p.Name == "" {
					p.Name = m.NmPessoa
				}
				p.Posto = m.SgPosto
				p.Org = m.SgOrg
			}
		}
		d.people[u.ID] = p
	}
	return d
}

// Person returns the detail for userID, or a placeholder carrying only the id.
func (d Directory) Person(userID string) PersonDetail {
	if p, ok := d.people[userID]; ok {
		return p
	}
	return PersonDetail{ID: userID, Email: UnknownEmail}
}

// MessHallName returns the display name, or "Rancho #<id>" when unknown.
func (d Directory) MessHallName(id int64) string {
	if h, ok := d.halls[id]; ok && h.DisplayName != "" {
		return h.DisplayName
	}
	return fmt.Sprintf("Rancho #%d", id)
}

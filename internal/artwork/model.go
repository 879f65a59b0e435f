package artwork

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusAvailable  Status = "Available"
	StatusSold       Status = "Sold"
	StatusExhibition Status = "Exhibition"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusExhibition:
		return true
	}
	return false
}

type State string

const (
	StateInProgress State = "In Progress"
	StateCompleted  State = "Completed"
)

func (s State) String() string {
	return string(s)
}

func (s State) Valid() bool {
	return s == StateInProgress || s == StateCompleted
}

// Artwork is a catalog listing. UID is human readable and never changes after creation.
type Artwork struct {
	ID          uuid.UUID  `json:"id"`
	UID         string     `json:"uid"`
	Src         string     `json:"src"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist,omitempty"`
	TypeCode    string     `json:"typeCode,omitempty"`
	Price       string     `json:"price"`
	Status      Status     `json:"status"`
	State       State      `json:"state"`
	Materials   string     `json:"materials,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Type        string     `json:"type,omitempty"`
	Inspiration string     `json:"inspiration,omitempty"`
	SoldDate    *time.Time `json:"soldDate,omitempty"`
	OrderID     string     `json:"orderId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status Status
	State  State
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Src         *string
	Title       *string
	Price       *string
	Status      *Status
	State       *State
	Materials   *string
	Duration    *string
	Type        *string
	Inspiration *string
}

func (p Patch) IsEmpty() bool {
	return p.Src == nil && p.Title == nil && p.Price == nil && p.Status == nil && p.State == nil &&
		p.Materials == nil && p.Duration == nil && p.Type == nil && p.Inspiration == nil
}

// MarkOutcome reports what MarkSold did to a single artwork.
type MarkOutcome int

const (
	MarkedSold MarkOutcome = iota
	AlreadySold
	NotInCatalog
)

func (o MarkOutcome) String() string {
	switch o {
	case MarkedSold:
		return "sold"
	case AlreadySold:
		return "already_sold"
	case NotInCatalog:
		return "not_found"
	}
	return "unknown"
}

package model

// State is a top-level region owning its cities.
type State struct {
	Base
	Name string `json:"name"`
}

func (*State) TypeName() string { return "State" }

func (s *State) Validate() error {
	if s.Name == "" {
		return &ValidationError{Type: "State", Field: "name"}
	}
	return nil
}

// City belongs to exactly one State.
type City struct {
	Base
	Name    string `json:"name"`
	StateID string `json:"state_id"`
}

func (*City) TypeName() string { return "City" }

func (c *City) Validate() error {
	if c.Name == "" {
		return &ValidationError{Type: "City", Field: "name"}
	}
	if c.StateID == "" {
		return &ValidationError{Type: "City", Field: "state_id"}
	}
	return nil
}

// User owns places and authors reviews. Email is immutable after creation;
// the API layer enforces that by never applying it on update.
type User struct {
	Base
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (*User) TypeName() string { return "User" }

func (u *User) Validate() error {
	if u.Email == "" {
		return &ValidationError{Type: "User", Field: "email"}
	}
	if u.Password == "" {
		return &ValidationError{Type: "User", Field: "password"}
	}
	return nil
}

// Place is a rentable property in a City, owned by a User. AmenityIDs is the
// file-engine representation of the Place-Amenity association; the relational
// engine keeps the links in a join table instead.
type Place struct {
	Base
	CityID          string   `json:"city_id"`
	UserID          string   `json:"user_id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	NumberRooms     int      `json:"number_rooms"`
	NumberBathrooms int      `json:"number_bathrooms"`
	MaxGuest        int      `json:"max_guest"`
	PriceByNight    int      `json:"price_by_night"`
	Latitude        float64  `json:"latitude,omitempty"`
	Longitude       float64  `json:"longitude,omitempty"`
	AmenityIDs      []string `json:"amenity_ids,omitempty"`
}

func (*Place) TypeName() string { return "Place" }

func (p *Place) Validate() error {
	if p.Name == "" {
		return &ValidationError{Type: "Place", Field: "name"}
	}
	if p.CityID == "" {
		return &ValidationError{Type: "Place", Field: "city_id"}
	}
	if p.UserID == "" {
		return &ValidationError{Type: "Place", Field: "user_id"}
	}
	return nil
}

// Review is a user's text review of a place.
type Review struct {
	Base
	Text    string `json:"text"`
	PlaceID string `json:"place_id"`
	UserID  string `json:"user_id"`
}

func (*Review) TypeName() string { return "Review" }

func (r *Review) Validate() error {
	if r.Text == "" {
		return &ValidationError{Type: "Review", Field: "text"}
	}
	if r.PlaceID == "" {
		return &ValidationError{Type: "Review", Field: "place_id"}
	}
	if r.UserID == "" {
		return &ValidationError{Type: "Review", Field: "user_id"}
	}
	return nil
}

// Amenity is linked to places through a pure association with no ownership.
type Amenity struct {
	Base
	Name string `json:"name"`
}

func (*Amenity) TypeName() string { return "Amenity" }

func (a *Amenity) Validate() error {
	if a.Name == "" {
		return &ValidationError{Type: "Amenity", Field: "name"}
	}
	return nil
}

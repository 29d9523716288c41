package restaurants

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ID identifies a restaurant or submission. String and numeric ids are both
// accepted.
type ID string

// UnmarshalJSON implements json.Unmarshaler interface.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid restaurant id: %s", b)
		}
		*id = ID(n.String())
	}
	return nil
}

// Restaurant is a listing returned by the food-map API.
type Restaurant struct {
	ID              ID       `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Location        string   `json:"location"`
	PriceRange      string   `json:"priceRange,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	Description     string   `json:"description,omitempty"`
	RecommendedMenu []string `json:"recommendedMenu,omitempty"`
	Likes           int      `json:"likes,omitempty"`
	Image           string   `json:"image,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (r *Restaurant) UnmarshalJSON(b []byte) error {
	type plain Restaurant
	var tmp struct {
		plain
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*r = Restaurant(tmp.plain)
	if r.ID == "" {
		r.ID = tmp.MongoID
	}
	return nil
}

// Submission is a restaurant suggested by a user.
type Submission struct {
	ID              ID       `json:"id,omitempty"`
	RestaurantName  string   `json:"restaurantName"`
	Category        string   `json:"category"`
	Location        string   `json:"location"`
	PriceRange      string   `json:"priceRange,omitempty"`
	RecommendedMenu []string `json:"recommendedMenu,omitempty"`
	Review          string   `json:"review,omitempty"`
	SubmitterName   string   `json:"submitterName,omitempty"`
	SubmitterEmail  string   `json:"submitterEmail,omitempty"`
	Status          string   `json:"status,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *Submission) UnmarshalJSON(b []byte) error {
	type plain Submission
	var tmp struct {
		plain
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*s = Submission(tmp.plain)
	if s.ID == "" {
		s.ID = tmp.MongoID
	}
	return nil
}

// Validate checks the required fields, reporting every missing one.
func (s *Submission) Validate() error {
	var errs *multierror.Error
	if strings.TrimSpace(s.RestaurantName) == "" {
		errs = multierror.Append(errs, errors.New("restaurant name is required"))
	}
	if strings.TrimSpace(s.Category) == "" {
		errs = multierror.Append(errs, errors.New("category is required"))
	}
	if strings.TrimSpace(s.Location) == "" {
		errs = multierror.Append(errs, errors.New("location is required"))
	}
	return errs.ErrorOrNil()
}

// envelope is the wrapper most API responses use. Some endpoints return the
// payload bare.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decodeData decodes body into out, unwrapping the envelope when present.
func decodeData(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
			if !*env.Success {
				if env.Message == "" {
					return errors.New("unsuccessful response")
				}
				return errors.New(env.Message)
			}
			return nil
		}
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(body, out)
}

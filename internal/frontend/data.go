package frontend

import (
	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/restaurants"
)

// RestaurantsData is the payload of the list and popular pages.
type RestaurantsData struct {
	Heading     string
	Restaurants []restaurants.Restaurant
	Error       string
}

// DetailData is the payload of the restaurant page.
type DetailData struct {
	Restaurant *restaurants.Restaurant
}

// FormData is the payload of the login, register and submit forms.
type FormData struct {
	Values  map[string]string
	Errors  map[string]string
	Message string
	From    string
	// Providers lists the OAuth providers offered next to the form.
	Providers []authapi.Provider
}

// AdminData is the payload of the user management page.
type AdminData struct {
	Users []authapi.User
	Error string
}

// SubmissionsData is the payload of the submissions page.
type SubmissionsData struct {
	Submissions []restaurants.Submission
	Error       string
}

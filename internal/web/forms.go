package web

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/campus-foodmap/foodmap/internal/restaurants"
)

// Form field messages.
const (
	msgEmailRequired    = "이메일은 필수입니다"
	msgEmailInvalid     = "올바른 이메일 형식이 아닙니다"
	msgPasswordRequired = "비밀번호는 필수입니다"
	msgPasswordShort    = "비밀번호는 최소 6자 이상이어야 합니다"
	msgNameRequired     = "이름은 필수입니다"
	msgNameShort        = "이름은 최소 2자 이상이어야 합니다"
	msgConfirmRequired  = "비밀번호 확인은 필수입니다"
	msgConfirmMismatch  = "비밀번호가 일치하지 않습니다"
	msgFieldRequired    = "필수 항목입니다"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
)

type fieldErrors map[string]string

func (fe fieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

type loginForm struct {
	Email    string
	Password string
	From     string
}

func parseLoginForm(r *http.Request) (loginForm, fieldErrors) {
	f := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		From:     r.PostFormValue("from"),
	}
	errs := fieldErrors{}
	validateEmail(errs, f.Email)
	validatePassword(errs, f.Password)
	return f, errs
}

type registerForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func parseRegisterForm(r *http.Request) (registerForm, fieldErrors) {
	f := registerForm{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	errs := fieldErrors{}
	switch {
	case f.Name == "":
		errs.add("name", msgNameRequired)
	case utf8.RuneCountInString(f.Name) < minNameLength:
		errs.add("name", msgNameShort)
	}
	validateEmail(errs, f.Email)
	validatePassword(errs, f.Password)
	switch {
	case f.ConfirmPassword == "":
		errs.add("confirmPassword", msgConfirmRequired)
	case f.ConfirmPassword != f.Password:
		errs.add("confirmPassword", msgConfirmMismatch)
	}
	return f, errs
}

func parseSubmissionForm(r *http.Request) (restaurants.Submission, map[string]string, fieldErrors) {
	values := map[string]string{}
	for _, k := range []string{"restaurantName", "category", "location", "priceRange", "recommendedMenu", "review"} {
		values[k] = strings.TrimSpace(r.PostFormValue(k))
	}
	s := restaurants.Submission{
		RestaurantName: values["restaurantName"],
		Category:       values["category"],
		Location:       values["location"],
		PriceRange:     values["priceRange"],
		Review:         values["review"],
	}
	for _, item := range strings.Split(values["recommendedMenu"], ",") {
		if item = strings.TrimSpace(item); item != "" {
			s.RecommendedMenu = append(s.RecommendedMenu, item)
		}
	}
	errs := fieldErrors{}
	for _, k := range []string{"restaurantName", "category", "location"} {
		if values[k] == "" {
			errs.add(k, msgFieldRequired)
		}
	}
	return s, values, errs
}

func validateEmail(errs fieldErrors, email string) {
	if email == "" {
		errs.add("email", msgEmailRequired)
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		errs.add("email", msgEmailInvalid)
	}
}

func validatePassword(errs fieldErrors, password string) {
	switch {
	case password == "":
		errs.add("password", msgPasswordRequired)
	case utf8.RuneCountInString(password) < minPasswordLength:
		errs.add("password", msgPasswordShort)
	}
}

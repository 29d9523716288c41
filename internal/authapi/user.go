package authapi

import (
	"encoding/json"
	"errors"
	"strconv"
)

// UserType is the role of a user account.
type UserType string

// Known user types.
const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
)

// UserID identifies a user. The identity service has sent both string and
// numeric ids, so both are accepted.
type UserID string

// String implements fmt.Stringer interface.
func (id UserID) String() string {
	return string(id)
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (id *UserID) UnmarshalJSON(b []byte) error {
	var tmp any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	switch val := tmp.(type) {
	case string:
		*id = UserID(val)
	case float64:
		*id = UserID(strconv.FormatFloat(val, 'f', -1, 64))
	case nil:
		*id = ""
	default:
		return errors.New("invalid type for user id")
	}
	return nil
}

// User is the identity record returned by the identity service.
type User struct {
	ID        UserID   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	UserType  UserType `json:"userType"`
	Provider  string   `json:"provider,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler interface. Records keyed by "_id"
// are accepted as well as "id".
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var tmp struct {
		plain
		MongoID UserID `json:"_id"`
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*u = User(tmp.plain)
	if u.ID == "" {
		u.ID = tmp.MongoID
	}
	return nil
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.UserType == UserTypeAdmin
}

// AuthResponse is the body of the register, login, current-user and OAuth
// callback endpoints.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

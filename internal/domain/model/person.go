package model

// Person is a PAX record from the person source.
type Person struct {
	ID        PersonID `json:"id" msgpack:"id"`
	Name      string   `json:"name" msgpack:"name"`
	InvitedBy PersonID `json:"invitedBy,omitempty" msgpack:"invited_by"`
	Email     string   `json:"email,omitempty" msgpack:"email"`
	PhotoURL  string   `json:"photoUrl,omitempty" msgpack:"photo_url"`
}

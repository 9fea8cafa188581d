package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// RawEvent is a backblast as delivered by a source, before normalization.
type RawEvent struct {
	ID           string   `json:"id"`
	Location     string   `json:"location" validate:"required"`
	Date         string   `json:"date" validate:"required"`
	Participants []string `json:"participants" validate:"required,min=1"`
	Leaders      []string `json:"leaders"`
}

// UnmarshalJSON also accepts the short field names used by older exports
// (ao, pax, qs, q).
func (r *RawEvent) UnmarshalJSON(b []byte) error {
	type plain RawEvent
	aux := struct {
		*plain
		AO  string   `json:"ao"`
		Pax []string `json:"pax"`
		Qs  []string `json:"qs"`
		Q   string   `json:"q"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if r.Location == "" {
		r.Location = aux.AO
	}
	if len(r.Participants) == 0 {
		r.Participants = aux.Pax
	}
	if len(r.Leaders) == 0 {
		r.Leaders = aux.Qs
	}
	if len(r.Leaders) == 0 && aux.Q != "" {
		r.Leaders = []string{aux.Q}
	}
	return nil
}

// Validate checks the structural constraints of the record.
func (r *RawEvent) Validate() error {
	return validate.Struct(r)
}

// RawPerson is a PAX as delivered by a source.
type RawPerson struct {
	Name      string `json:"name" validate:"required"`
	InvitedBy string `json:"invitedBy"`
	Email     string `json:"email" validate:"omitempty,email"`
	PhotoURL  string `json:"photoUrl" validate:"omitempty,url"`
}

// Validate checks the structural constraints of the record.
func (r *RawPerson) Validate() error {
	return validate.Struct(r)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// InvalidFields lists the json names of the fields rejected by Validate.
// It returns nil when err is not a validation error.
func InvalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

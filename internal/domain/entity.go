package domain

import (
	"encoding/json"
	"time"
)

// FieldKey identifies one buyer-information field on the invoice form
type FieldKey string

// Recognized field keys
const (
	FieldName          FieldKey = "name"
	FieldTIN           FieldKey = "tin"
	FieldType          FieldKey = "type"
	FieldID            FieldKey = "id"
	FieldSST           FieldKey = "sst"
	FieldAddress       FieldKey = "address"
	FieldEmail         FieldKey = "email"
	FieldContactNumber FieldKey = "contactNumber"
)

// RecognizedKeys is the fixed iteration order used by the field diff and by
// every consumer that renders discrepancies.
var RecognizedKeys = []FieldKey{
	FieldName,
	FieldTIN,
	FieldType,
	FieldID,
	FieldSST,
	FieldAddress,
	FieldEmail,
	FieldContactNumber,
}

var fieldLabels = map[FieldKey]string{
	FieldName:          "Name",
	FieldTIN:           "Tax Identification Number (TIN)",
	FieldType:          "ID Type",
	FieldID:            "Registration / Identification / Passport Number",
	FieldSST:           "SST Registration Number",
	FieldAddress:       "Address",
	FieldEmail:         "E-mail",
	FieldContactNumber: "Contact Number",
}

// Label returns the form label shown next to the field
func (k FieldKey) Label() string {
	return fieldLabels[k]
}

// IsRecognized reports whether k is one of RecognizedKeys
func (k FieldKey) IsRecognized() bool {
	_, ok := fieldLabels[k]
	return ok
}

// Fields maps field keys to values. A key missing from the map is absent,
// which is distinct from a key mapped to the empty string.
type Fields map[FieldKey]string

// Get returns the value for key and whether it is present
func (f Fields) Get(key FieldKey) (string, bool) {
	v, ok := f[key]
	return v, ok
}

// UnmarshalJSON drops null values so a field reported as null stays absent
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[FieldKey]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		}
	}
	*f = out
	return nil
}

// Clone returns a copy of f restricted to recognized keys
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for _, k := range RecognizedKeys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// NormalizedAddress is the structured form derived from the free-text address
type NormalizedAddress struct {
	Line1    string `json:"line1" yaml:"line1"`
	Line2    string `json:"line2" yaml:"line2"`
	Line3    string `json:"line3" yaml:"line3"`
	Postcode string `json:"postcode" yaml:"postcode"`
	City     string `json:"city" yaml:"city"`
	State    string `json:"state" yaml:"state"`
	Country  string `json:"country" yaml:"country"`
}

// IsZero reports whether no component of the address is set
func (a NormalizedAddress) IsZero() bool {
	return a == NormalizedAddress{}
}

// EntityRecord is a known business entity stored in the directory
type EntityRecord struct {
	Name              string            `json:"name"`
	Fields            Fields            `json:"fields"`
	NormalizedAddress NormalizedAddress `json:"normalizedAddress"`
	IdentityHash      string            `json:"hash"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Observation is the buyer information scraped from the live page
type Observation struct {
	Fields     Fields    `json:"fields"`
	ObservedAt time.Time `json:"observedAt"`
}

// EntityInput is the admin form payload for creating or editing an entity
type EntityInput struct {
	Entity        string `json:"entity" yaml:"entity" validate:"required,min=1,max=100"`
	Name          string `json:"name" yaml:"name" validate:"required,min=1,max=100"`
	TIN           string `json:"tin" yaml:"tin" validate:"required,min=1,max=50"`
	Type          string `json:"type" yaml:"type" validate:"required,min=1,max=50"`
	ID            string `json:"id" yaml:"id" validate:"required,min=1,max=50"`
	SST           string `json:"sst" yaml:"sst" validate:"required,min=1,max=50"`
	Address       string `json:"address" yaml:"address" validate:"required,min=1,max=600"`
	Email         string `json:"email" yaml:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" yaml:"contactNumber" validate:"required,min=1,max=20"`
}

// Fields returns the input as a field mapping covering every recognized key
func (in EntityInput) Fields() Fields {
	return Fields{
		FieldName:          in.Name,
		FieldTIN:           in.TIN,
		FieldType:          in.Type,
		FieldID:            in.ID,
		FieldSST:           in.SST,
		FieldAddress:       in.Address,
		FieldEmail:         in.Email,
		FieldContactNumber: in.ContactNumber,
	}
}

// InputFromRecord builds the admin form payload for an existing record
func InputFromRecord(r EntityRecord) EntityInput {
	return EntityInput{
		Entity:        r.Name,
		Name:          r.Fields[FieldName],
		TIN:           r.Fields[FieldTIN],
		Type:          r.Fields[FieldType],
		ID:            r.Fields[FieldID],
		SST:           r.Fields[FieldSST],
		Address:       r.Fields[FieldAddress],
		Email:         r.Fields[FieldEmail],
		ContactNumber: r.Fields[FieldContactNumber],
	}
}

package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the registry API.
const DateLayout = "2006-01-02"

// DocTypeIntroduceGoods is the document type for introducing goods produced
// in the country into circulation.
const DocTypeIntroduceGoods = "LP_INTRODUCE_GOODS"

// Date is a calendar date without time of day. It serializes as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the date portion of t in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected %s", value, DateLayout)
	}
	return Date{Time: parsed}, nil
}

// String renders the date as YYYY-MM-DD, or an empty string for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalText lets YAML and mapstructure decoders read dates.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Description carries the participant identity block of a document.
type Description struct {
	ParticipantInn string `json:"participantInn" yaml:"participantInn"`
}

// Product is a single goods line inside a document.
type Product struct {
	CertificateDocument       string `json:"certificate_document" yaml:"certificate_document"`
	CertificateDocumentDate   Date   `json:"certificate_document_date" yaml:"certificate_document_date"`
	CertificateDocumentNumber string `json:"certificate_document_number" yaml:"certificate_document_number"`
	OwnerInn                  string `json:"owner_inn" yaml:"owner_inn"`
	ProducerInn               string `json:"producer_inn" yaml:"producer_inn"`
	ProductionDate            Date   `json:"production_date" yaml:"production_date"`
	TnvedCode                 string `json:"tnved_code" yaml:"tnved_code"`
	UitCode                   string `json:"uit_code" yaml:"uit_code"`
	UituCode                  string `json:"uitu_code" yaml:"uitu_code"`
}

// Document is the payload submitted to the registry "create document" endpoint.
type Document struct {
	Description    Description `json:"description" yaml:"description"`
	DocID          string      `json:"doc_id" yaml:"doc_id"`
	DocStatus      string      `json:"doc_status" yaml:"doc_status"`
	DocType        string      `json:"doc_type" yaml:"doc_type"`
	ImportRequest  bool        `json:"importRequest" yaml:"importRequest"`
	OwnerInn       string      `json:"owner_inn" yaml:"owner_inn"`
	ParticipantInn string      `json:"participant_inn" yaml:"participant_inn"`
	ProducerInn    string      `json:"producer_inn" yaml:"producer_inn"`
	ProductionDate Date        `json:"production_date" yaml:"production_date"`
	ProductionType string      `json:"production_type" yaml:"production_type"`
	Products       []Product   `json:"products" yaml:"products"`
	RegDate        Date        `json:"reg_date" yaml:"reg_date"`
	RegNumber      string      `json:"reg_number" yaml:"reg_number"`
}

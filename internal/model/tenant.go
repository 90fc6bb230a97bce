package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/voicedesk/pkg/utils/json"
)

// DefaultTenantID is the built-in tenant used when nothing is active.
const DefaultTenantID = "default"

// Vertical is a business-category template.
type Vertical string

const (
	VerticalBroadway  Vertical = "broadway"
	VerticalHotel     Vertical = "hotel"
	VerticalEvents    Vertical = "events"
	VerticalMarketing Vertical = "marketing"
	VerticalOther     Vertical = "other"
)

// ErrUnknownVertical is returned for a vertical outside the enum.
var ErrUnknownVertical = errors.New("unknown vertical")

// ParseVertical validates s.
func ParseVertical(s string) (Vertical, error) {
	switch v := Vertical(strings.ToLower(strings.TrimSpace(s))); v {
	case VerticalBroadway, VerticalHotel, VerticalEvents, VerticalMarketing, VerticalOther:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVertical, s)
	}
}

// DomainData is the vertical-specific part of a tenant configuration.
// Exactly one variant exists per vertical.
type DomainData interface {
	Vertical() Vertical
	// Validate returns one message per missing required field.
	Validate() []string
}

// BroadwayData has no required fields.
type BroadwayData struct {
	Theatres []string `json:"theatres,omitempty"`
}

// HotelPolicies are the house rules of a hotel tenant.
type HotelPolicies struct {
	CheckIn      string `json:"checkIn"`
	CheckOut     string `json:"checkOut"`
	Cancellation string `json:"cancellation,omitempty"`
}

// HotelData describes a hotel property.
type HotelData struct {
	PropertyName string        `json:"propertyName"`
	Locations    []string      `json:"locations"`
	RoomTypes    []string      `json:"roomTypes"`
	Amenities    []string      `json:"amenities"`
	Policies     HotelPolicies `json:"policies"`
}

// EventsData describes an events business.
type EventsData struct {
	EventTypes   []string        `json:"eventTypes"`
	Venues       []string        `json:"venues"`
	Packages     []string        `json:"packages"`
	PricingRules json.RawMessage `json:"pricingRules,omitempty"`
}

// MarketingData describes a marketing agency.
type MarketingData struct {
	Services    []string `json:"services"`
	Industries  []string `json:"industries"`
	CaseStudies []string `json:"caseStudies,omitempty"`
}

// OtherData keeps whatever the admin stored, unvalidated.
type OtherData struct {
	Raw json.RawMessage
}

func (BroadwayData) Vertical() Vertical  { return VerticalBroadway }
func (HotelData) Vertical() Vertical     { return VerticalHotel }
func (EventsData) Vertical() Vertical    { return VerticalEvents }
func (MarketingData) Vertical() Vertical { return VerticalMarketing }
func (OtherData) Vertical() Vertical     { return VerticalOther }

func (BroadwayData) Validate() []string { return nil }
func (OtherData) Validate() []string    { return nil }

func (d HotelData) Validate() []string {
	var errs []string
	if strings.TrimSpace(d.PropertyName) == "" {
		errs = append(errs, "hotel: propertyName is required")
	}
	if len(d.Locations) == 0 {
		errs = append(errs, "hotel: at least one location is required")
	}
	if len(d.RoomTypes) == 0 {
		errs = append(errs, "hotel: at least one room type is required")
	}
	if len(d.Amenities) == 0 {
		errs = append(errs, "hotel: at least one amenity is required")
	}
	if d.Policies.CheckIn == "" || d.Policies.CheckOut == "" {
		errs = append(errs, "hotel: policies.checkIn and policies.checkOut are required")
	}
	return errs
}

func (d EventsData) Validate() []string {
	var errs []string
	if len(d.EventTypes) == 0 {
		errs = append(errs, "events: at least one event type is required")
	}
	if len(d.Venues) == 0 {
		errs = append(errs, "events: at least one venue is required")
	}
	if len(d.Packages) == 0 {
		errs = append(errs, "events: at least one package is required")
	}
	return errs
}

func (d MarketingData) Validate() []string {
	var errs []string
	if len(d.Services) == 0 {
		errs = append(errs, "marketing: at least one service is required")
	}
	if len(d.Industries) == 0 {
		errs = append(errs, "marketing: at least one industry is required")
	}
	return errs
}

// MarshalJSON writes the raw document back untouched.
func (d OtherData) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("{}"), nil
	}
	return d.Raw, nil
}

// DecodeDomainData decodes raw into the variant for v. Empty input yields
// the zero variant.
func DecodeDomainData(v Vertical, raw json.RawMessage) (DomainData, error) {
	empty := len(raw) == 0 || string(raw) == "null"
	var (
		d   DomainData
		err error
	)
	switch v {
	case VerticalBroadway:
		var x BroadwayData
		if !empty {
			err = json.Unmarshal(raw, &x)
		}
		d = x
	case VerticalHotel:
		var x HotelData
		if !empty {
			err = json.Unmarshal(raw, &x)
		}
		d = x
	case VerticalEvents:
		var x EventsData
		if !empty {
			err = json.Unmarshal(raw, &x)
		}
		d = x
	case VerticalMarketing:
		var x MarketingData
		if !empty {
			err = json.Unmarshal(raw, &x)
		}
		d = x
	case VerticalOther:
		x := OtherData{}
		if !empty {
			x.Raw = append(json.RawMessage(nil), raw...)
		}
		d = x
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVertical, v)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s domain data: %w", v, err)
	}
	return d, nil
}

// TenantConfig is a tenant's assistant configuration. The active tenant is
// tracked separately, never on the document.
type TenantConfig struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Vertical         Vertical   `json:"vertical"`
	BrandVoice       string     `json:"brandVoice"`
	WelcomeMessage   string     `json:"welcomeMessage"`
	FunctionsEnabled []string   `json:"functionsEnabled"`
	DomainData       DomainData `json:"domainData"`
}

type tenantConfigJSON struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Vertical         string          `json:"vertical"`
	BrandVoice       string          `json:"brandVoice"`
	WelcomeMessage   string          `json:"welcomeMessage"`
	FunctionsEnabled []string        `json:"functionsEnabled"`
	DomainData       json.RawMessage `json:"domainData"`
}

// UnmarshalJSON decodes domainData into the variant named by vertical.
func (c *TenantConfig) UnmarshalJSON(b []byte) error {
	var aux tenantConfigJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	v, err := ParseVertical(aux.Vertical)
	if err != nil {
		return err
	}
	dd, err := DecodeDomainData(v, aux.DomainData)
	if err != nil {
		return err
	}
	*c = TenantConfig{
		ID:               aux.ID,
		Name:             aux.Name,
		Vertical:         v,
		BrandVoice:       aux.BrandVoice,
		WelcomeMessage:   aux.WelcomeMessage,
		FunctionsEnabled: aux.FunctionsEnabled,
		DomainData:       dd,
	}
	return nil
}

// Validate checks the required fields and the vertical domain data.
func (c *TenantConfig) Validate() []string {
	var errs []string
	if c.ID == "" {
		errs = append(errs, "id is required")
	}
	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.BrandVoice == "" {
		errs = append(errs, "brandVoice is required")
	}
	if c.WelcomeMessage == "" {
		errs = append(errs, "welcomeMessage is required")
	}
	if _, err := ParseVertical(string(c.Vertical)); err != nil {
		return append(errs, err.Error())
	}
	if c.DomainData == nil {
		dd, _ := DecodeDomainData(c.Vertical, nil)
		c.DomainData = dd
	}
	if c.DomainData.Vertical() != c.Vertical {
		return append(errs, fmt.Sprintf("domainData is for %s, vertical is %s", c.DomainData.Vertical(), c.Vertical))
	}
	return append(errs, c.DomainData.Validate()...)
}

// FunctionEnabled reports whether name is in FunctionsEnabled.
func (c *TenantConfig) FunctionEnabled(name string) bool {
	for _, f := range c.FunctionsEnabled {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultTenantConfig is served for "default" when no document exists.
func DefaultTenantConfig() *TenantConfig {
	return &TenantConfig{
		ID:               DefaultTenantID,
		Name:             "Broadway Tickets",
		Vertical:         VerticalBroadway,
		BrandVoice:       "Friendly, concise, helpful",
		WelcomeMessage:   "Hi. I'm Paula, Welcome to Broadway Shows! How are you feeling today?",
		FunctionsEnabled: []string{"suggestShows", "confirmDetails", "bookTickets"},
		DomainData:       BroadwayData{},
	}
}

package types

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Service is the utility affected by an outage.
//
// Electricity is never produced by the outage scraper, the page only lists
// water and district heating under the ongoing section. It is kept so that
// records from other sources can use the same vocabulary.
type Service int

const (
	Water Service = iota + 1
	DistrictHeating
	Electricity
)

// Status is the lifecycle state of an outage.
//
// Nominal and ReparationOngoing are currently unreachable from extraction,
// StatusAliases only knows the two labels the ongoing section uses.
type Status int

const (
	Nominal Status = iota + 1
	UnderInvestigation
	UnderService
	ReparationOngoing
)

// ServiceAliases maps the Swedish header label on the outage page to a Service.
var ServiceAliases = map[string]Service{
	"Vatten":     Water,
	"Fjärrvärme": DistrictHeating,
}

// StatusAliases maps the Swedish status label on the outage page to a Status.
var StatusAliases = map[string]Status{
	"Felsökning pågår": UnderInvestigation,
	"Underhåll":        UnderService,
}

// LookupService resolves a scraped label. The label is trimmed and NFC
// normalized so decomposed å, ä and ö still match.
func LookupService(label string) (Service, bool) {
	s, ok := ServiceAliases[normalizeLabel(label)]
	return s, ok
}

// LookupStatus resolves a scraped label, see LookupService.
func LookupStatus(label string) (Status, bool) {
	s, ok := StatusAliases[normalizeLabel(label)]
	return s, ok
}

func normalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

func (s Service) String() string {
	switch s {
	case Water:
		return "WATER"
	case DistrictHeating:
		return "DISTRICT_HEATING"
	case Electricity:
		return "ELECTRICITY"
	default:
		return fmt.Sprintf("Service(%d)", int(s))
	}
}

func (s Service) DisplayName() string {
	switch s {
	case Water:
		return "Water"
	case DistrictHeating:
		return "District heating"
	case Electricity:
		return "Electricity"
	default:
		return s.String()
	}
}

func (s Service) SwedishName() string {
	switch s {
	case Water:
		return "Vatten"
	case DistrictHeating:
		return "Fjärrvärme"
	case Electricity:
		return "El"
	default:
		return s.String()
	}
}

func (s Service) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Service) UnmarshalText(text []byte) error {
	for _, candidate := range []Service{Water, DistrictHeating, Electricity} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown service %q", string(text))
}

func (s Status) String() string {
	switch s {
	case Nominal:
		return "NOMINAL"
	case UnderInvestigation:
		return "UNDER_INVESTIGATION"
	case UnderService:
		return "UNDER_SERVICE"
	case ReparationOngoing:
		return "REPARATION_ONGOING"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) DisplayName() string {
	switch s {
	case Nominal:
		return "Nominal"
	case UnderInvestigation:
		return "Under investigation"
	case UnderService:
		return "Under service"
	case ReparationOngoing:
		return "Reparation ongoing"
	default:
		return s.String()
	}
}

func (s Status) SwedishName() string {
	switch s {
	case Nominal:
		return "Normal drift"
	case UnderInvestigation:
		return "Felsökning pågår"
	case UnderService:
		return "Underhåll"
	case ReparationOngoing:
		return "Reparation pågår"
	default:
		return s.String()
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Nominal, UnderInvestigation, UnderService, ReparationOngoing} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// OutageRecord is one entry from the ongoing outages section.
type OutageRecord struct {
	Locations         []string  `json:"locations"`
	Service           Service   `json:"service"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Status            Status    `json:"status"`
	AffectedCustomers int       `json:"affectedCustomers"`
}

// Key identifies the same outage across repeated scrapes.
func (o OutageRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s",
		strings.Join(o.Locations, ", "),
		o.Service,
		o.Start.UTC().Format(time.RFC3339))
}

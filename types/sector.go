package types

import (
	"fmt"
	"strings"
)

// Sector is one of the four Swedish bidding areas used for spot pricing.
type Sector int

const (
	SE1 Sector = iota + 1 // Luleå
	SE2                   // Sundsvall
	SE3                   // Stockholm
	SE4                   // Malmö
)

var Sectors = []Sector{SE1, SE2, SE3, SE4}

func (s Sector) String() string {
	switch s {
	case SE1:
		return "SE1"
	case SE2:
		return "SE2"
	case SE3:
		return "SE3"
	case SE4:
		return "SE4"
	default:
		return fmt.Sprintf("Sector(%d)", int(s))
	}
}

func (s Sector) Valid() bool {
	return s >= SE1 && s <= SE4
}

func ParseSector(str string) (Sector, error) {
	for _, s := range Sectors {
		if strings.EqualFold(strings.TrimSpace(str), s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sector %q, expected one of SE1, SE2, SE3, SE4", str)
}

func (s Sector) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sector %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Sector) UnmarshalText(text []byte) error {
	parsed, err := ParseSector(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

package location

import (
	"strings"

	"github.com/fjod/order-desk/domain"
)

// ParseCityDistrict splits "District, City, Province" text into names. It is the fallback
// when no structured location is available; ids stay empty.
func ParseCityDistrict(text string) domain.Location {
	var parts []string
	for _, p := range strings.Split(text, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var loc domain.Location
	switch len(parts) {
	case 0:
	case 1:
		loc.CityName = parts[0]
	case 2:
		loc.DistrictName, loc.CityName = parts[0], parts[1]
	default:
		loc.DistrictName = parts[0]
		loc.CityName = parts[1]
		loc.ProvinceName = parts[len(parts)-1]
	}
	return loc
}

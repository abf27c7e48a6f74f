package domain

import "strings"

// Location is a structured province/city/district triple returned by the location resolver.
type Location struct {
	ProvinceID   string `json:"province_id,omitempty"`
	ProvinceName string `json:"province_name,omitempty"`
	CityID       string `json:"city_id,omitempty"`
	CityName     string `json:"city_name,omitempty"`
	DistrictID   string `json:"district_id,omitempty"`
	DistrictName string `json:"district_name,omitempty"`
}

// BuyerInfo holds the buyer fields of the checkout form.
// Location is set only when a structured lookup succeeded; otherwise CityDistrict is the only source.
type BuyerInfo struct {
	Phone           string    `json:"phone"`
	PhoneNormalized string    `json:"phone_normalized,omitempty"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	CityDistrict    string    `json:"city_district"`
	Location        *Location `json:"location,omitempty"`
}

// DestinationDistrictID returns the district id used for rate quoting, or "" when unknown.
func (b BuyerInfo) DestinationDistrictID() string {
	if b.Location == nil {
		return ""
	}
	return strings.TrimSpace(b.Location.DistrictID)
}

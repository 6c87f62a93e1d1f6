package domain

import (
	"net/mail"
	"strings"
)

type BillingInfo struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	CountryCode string `json:"country_code"`
	CountryArea string `json:"country_area"`
	Email       string `json:"email"`
}

func (b BillingInfo) Normalize() BillingInfo {
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.LastName = strings.TrimSpace(b.LastName)
	b.Address1 = strings.TrimSpace(b.Address1)
	b.Address2 = strings.TrimSpace(b.Address2)
	b.City = strings.TrimSpace(b.City)
	b.Postcode = strings.TrimSpace(b.Postcode)
	b.CountryCode = strings.ToUpper(strings.TrimSpace(b.CountryCode))
	b.CountryArea = strings.TrimSpace(b.CountryArea)
	b.Email = strings.TrimSpace(b.Email)
	return b
}

// Validate reports every missing or malformed field at once. Address2 and
// CountryArea are optional.
func (b BillingInfo) Validate() error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value string
	}{
		{"first_name", b.FirstName},
		{"last_name", b.LastName},
		{"address_1", b.Address1},
		{"city", b.City},
		{"postcode", b.Postcode},
		{"country_code", b.CountryCode},
		{"email", b.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Add(r.field, "is required")
		}
	}

	if b.CountryCode != "" && len(strings.TrimSpace(b.CountryCode)) != 2 {
		verr.Add("country_code", "must be a two-letter ISO code")
	}
	if b.Email != "" {
		if err := ValidateEmail(b.Email); err != nil {
			verr.Add("email", "is not a valid address")
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func ValidateEmail(addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return NewValidationError("email", "is not a valid address")
	}
	if parsed.Address != strings.TrimSpace(addr) {
		return NewValidationError("email", "must be a bare address")
	}
	return nil
}

package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

// Login ID layout: <companyCode:2><firstNameCode:2><lastNameCode:2><year:4><serial:4>.
const (
	loginIDLength   = 14
	loginIDYearPos  = 6
	loginIDYearLen  = 4
	loginIDSerialPos = 10
	maxSerialPerYear = 9999
)

// AllocateLoginID computes the next login ID for a new employee from a
// snapshot of existing IDs. It is advisory only: two concurrent calls over
// the same snapshot can produce the same serial, so the store's unique index
// on login_id remains the source of truth and the provisioning service
// retries with a fresh snapshot on conflict.
//
// The serial is scoped per joining year across the whole organisation, not
// per name prefix: existing IDs are filtered to exactly 14 characters whose
// year segment matches, and the maximum parseable serial determines the next
// one. Malformed serials are skipped rather than treated as errors.
func AllocateLoginID(existing []string, companyCode, firstName, lastName string, dateOfJoining time.Time) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(companyCode))
	if len(code) != 2 {
		return "", appErrors.Clone(appErrors.ErrValidation, "company code must be exactly 2 characters")
	}

	firstCode, err := namePrefix(firstName)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "first name must have at least 2 letters")
	}
	lastCode, err := namePrefix(lastName)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "last name must have at least 2 letters")
	}

	year := fmt.Sprintf("%04d", dateOfJoining.Year())

	maxSerial := 0
	for _, id := range existing {
		if len(id) != loginIDLength {
			continue
		}
		if id[loginIDYearPos:loginIDYearPos+loginIDYearLen] != year {
			continue
		}
		serial, err := strconv.Atoi(id[loginIDSerialPos:])
		if err != nil {
			continue
		}
		if serial > maxSerial {
			maxSerial = serial
		}
	}

	next := maxSerial + 1
	if next > maxSerialPerYear {
		return "", appErrors.Clone(appErrors.ErrAllocationExhausted,
			fmt.Sprintf("login ID serial space exhausted for year %s", year))
	}

	return fmt.Sprintf("%s%s%s%s%04d", code, firstCode, lastCode, year, next), nil
}

// namePrefix returns the upper-cased first two runes of a name. Names
// shorter than two runes fail fast instead of producing a malformed ID.
func namePrefix(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < 2 {
		return "", fmt.Errorf("name too short")
	}
	runes := []rune(trimmed)
	return strings.ToUpper(string(runes[:2])), nil
}

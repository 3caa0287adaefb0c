package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

func TestAllocateLoginIDFirstOfYear(t *testing.T) {
	joined := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	id, err := AllocateLoginID(nil, "OI", "John", "Anderson", joined)

	assert.NoError(t, err)
	assert.Equal(t, "OIJOAN20240001", id)
	assert.Len(t, id, 14)
}

func TestAllocateLoginIDIncrementsSerial(t *testing.T) {
	joined := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := []string{"OIJOAN20240001"}

	id, err := AllocateLoginID(existing, "OI", "Jane", "Doe", joined)

	assert.NoError(t, err)
	assert.Equal(t, "OIJADO20240002", id)
}

func TestAllocateLoginIDSerialIsOrgWidePerYear(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []string{
		"OIJOAN20240007",
		"OIMASM20240003",
		"OIXXYY20230042", // different year, ignored
	}

	id, err := AllocateLoginID(existing, "OI", "Lena", "Park", joined)

	assert.NoError(t, err)
	assert.Equal(t, "OILEPA20240008", id)
}

func TestAllocateLoginIDSkipsMalformedEntries(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []string{
		"short",
		"OIJOAN2024XXXX",
		"OIJOAN20240002",
		"this-id-is-way-too-long-to-match",
	}

	id, err := AllocateLoginID(existing, "OI", "Ann", "Lee", joined)

	assert.NoError(t, err)
	assert.Equal(t, "OIANLE20240003", id)
}

func TestAllocateLoginIDUppercasesPrefixes(t *testing.T) {
	joined := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	id, err := AllocateLoginID(nil, "oi", "maria", "smith", joined)

	assert.NoError(t, err)
	assert.Equal(t, "OIMASM20250001", id)
}

func TestAllocateLoginIDShortNameFails(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := AllocateLoginID(nil, "OI", "J", "Anderson", joined)

	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = AllocateLoginID(nil, "OI", "John", "A", joined)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocateLoginIDBadCompanyCode(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := AllocateLoginID(nil, "OID", "John", "Anderson", joined)

	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocateLoginIDExhaustedSerials(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []string{"OIZZZZ20249999"}

	_, err := AllocateLoginID(existing, "OI", "John", "Anderson", joined)

	assert.Equal(t, appErrors.ErrAllocationExhausted.Code, appErrors.FromError(err).Code)
}

func TestAllocateLoginIDMonotonicSequence(t *testing.T) {
	joined := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []string{}

	for i := 1; i <= 25; i++ {
		id, err := AllocateLoginID(existing, "OI", "John", "Anderson", joined)
		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("OIJOAN2024%04d", i), id)
		existing = append(existing, id)
	}
}

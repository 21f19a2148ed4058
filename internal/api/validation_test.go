package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Date      string `validate:"required,datetime=2006-01-02"`
	Time      string `validate:"required,clock"`
	PackageID int    `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(sample{Date: "2026-03-02", Time: "10:30", PackageID: 1}))

	errs := ValidateStruct(sample{Date: "02/03/2026", Time: "25:00"})
	require.Len(t, errs, 3)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "datetime", byField["Date"].Tag)
	assert.Equal(t, "Time must be a time in HH:MM format", byField["Time"].Message)
	assert.Equal(t, "PackageID must be greater than 0", byField["PackageID"].Message)
}

func TestValidateStructMissing(t *testing.T) {
	errs := ValidateStruct(sample{PackageID: 1})
	require.Len(t, errs, 2)
	assert.Equal(t, "required", errs[0].Tag)
}

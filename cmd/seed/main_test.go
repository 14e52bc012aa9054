package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	rows, err := loadCSV("testdata/fixture.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NoError(t, validateRows(rows))

	assert.Equal(t, 900002, rows[1].TreeID)
	require.NotNil(t, rows[1].Height)
	assert.Equal(t, 7.0, *rows[1].Height)
	require.NotNil(t, rows[1].IsNative)
	assert.True(t, *rows[1].IsNative)
	assert.Equal(t, "301 - 600 cm", *rows[1].SpreadCategory)
	assert.Nil(t, rows[2].Address)
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := parseCSV(strings.NewReader("tree_id,lon,lat\n1,2,3\n"))
	assert.ErrorContains(t, err, "missing required column")
}

func TestParseCSVBadNumber(t *testing.T) {
	in := strings.Join(requiredColumns, ",") + "\n" +
		"1,-6.2,53.3,ACPS,Acer,Sycamore,false,tall,,,,true,,\n"
	_, err := parseCSV(strings.NewReader(in))
	assert.ErrorContains(t, err, "height")
}

func TestValidateRows(t *testing.T) {
	assert.Error(t, validateRows(nil))
	assert.ErrorContains(t, validateRows([]TreeCSV{
		{TreeID: 1, SpeciesCode: "A"},
		{TreeID: 1, SpeciesCode: "A"},
	}), "duplicate tree_id")
	assert.ErrorContains(t, validateRows([]TreeCSV{{TreeID: 1, Lon: 200, SpeciesCode: "A"}}), "coordinates")
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartJobRequestValidate(t *testing.T) {
	valid := StartJobRequest{Accessions: []string{"P01308"}}
	require.NoError(t, valid.Validate())

	blank := StartJobRequest{Accessions: []string{" ", ""}, AccessionsText: "\n  \n"}
	require.Error(t, blank.Validate())

	negative := -1
	withNegativeTimeout := StartJobRequest{Accessions: []string{"P01308"}, TimeoutSeconds: &negative}
	require.Error(t, withNegativeTimeout.Validate())

	zero := 0
	unbounded := StartJobRequest{AccessionsText: "P01308", TimeoutSeconds: &zero}
	require.NoError(t, unbounded.Validate())
	assert.Equal(t, 0, unbounded.Timeout())
}

func TestStartJobRequestDefaults(t *testing.T) {
	req := StartJobRequest{Accessions: []string{" P01308 "}, AccessionsText: "Q9Y6K9\r\n\nBAD1\n"}

	assert.Equal(t, []string{"P01308", "Q9Y6K9", "BAD1"}, req.AllAccessions())
	assert.Equal(t, DefaultTimeoutSeconds, req.Timeout())
}

func TestParseAccessions(t *testing.T) {
	assert.Empty(t, ParseAccessions(""))
	assert.Equal(t, []string{"A", "B"}, ParseAccessions("  A\n\n B  \n"))
}

func TestTaxIDFor(t *testing.T) {
	assert.Equal(t, "9606", TaxIDFor("human"))
	assert.Equal(t, "9606", TaxIDFor(" Human "))
	assert.Equal(t, "7955", TaxIDFor("zebrafish"))
	assert.Equal(t, "7955", TaxIDFor("martian"))
	assert.Equal(t, "7955", TaxIDFor(""))
	assert.Equal(t, "zebrafish", NormalizeOrganism(""))
}

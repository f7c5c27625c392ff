package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundWrapping(t *testing.T) {
	err := NotFoundf("no annual report for %s", "E05041")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "E05041")

	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	cause := errors.New("status 503")
	err := NewExternalServiceError("edinet", cause)

	var svcErr *ExternalServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "edinet", svcErr.Service)
	assert.True(t, errors.Is(err, cause))
}

func TestSchemaErrorBoundsRawPayload(t *testing.T) {
	raw := strings.Repeat("あ", 1500)
	err := NewSchemaError(errors.New("unexpected token"), raw)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, SchemaErrorRawLimit, len([]rune(schemaErr.Raw)))
}

func TestSchemaErrorKeepsShortPayloadIntact(t *testing.T) {
	err := NewSchemaError(errors.New("bad"), "not json")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "not json", schemaErr.Raw)
}

func TestEntityResultFailed(t *testing.T) {
	assert.False(t, EntityResult{}.Failed())
	assert.True(t, EntityResult{Error: "filing search: not found"}.Failed())
}

func TestCountProperties(t *testing.T) {
	records := []ValuationRecord{
		{Property: PropertyRecord{Ownership: OwnershipOwned, Purpose: "本社"}},
		{Property: PropertyRecord{Ownership: OwnershipOwned, Purpose: "工場"}},
		{Property: PropertyRecord{Ownership: OwnershipLeased, Purpose: "工場"}},
		{Property: PropertyRecord{Ownership: OwnershipOwned}},
	}

	counts := CountProperties(records)
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 3, counts.Owned)
	assert.Equal(t, 1, counts.Leased)
	assert.Equal(t, map[string]int{"本社": 1, "工場": 2, "unknown": 1}, counts.ByPurpose)
}

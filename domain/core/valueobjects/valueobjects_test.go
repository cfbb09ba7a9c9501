package valueobjects

import (
	"encoding/json"
	"testing"

	pkgerrors "esn-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomerID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "numeric", raw: "7001", want: "gid://shopify/Customer/7001"},
		{name: "gid", raw: "gid://shopify/Customer/7001", want: "gid://shopify/Customer/7001"},
		{name: "padded", raw: "  7001 ", want: "gid://shopify/Customer/7001"},
		{name: "empty", raw: "", wantErr: true},
		{name: "other resource", raw: "gid://shopify/Order/1", wantErr: true},
		{name: "bare prefix", raw: "gid://shopify/Customer/", wantErr: true},
		{name: "not numeric", raw: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewCustomerID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
			assert.Equal(t, "7001", id.NumericID())
		})
	}
}

func TestConnectionID_NewIsUniqueUUID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewConnectionID()
		require.True(t, id.IsUUID())
		require.False(t, seen[id.String()], "duplicate id %s", id)
		seen[id.String()] = true
	}
}

func TestConnectionID_LegacyIdentifiersAreKept(t *testing.T) {
	id, err := NewConnectionIDFromString("conn_1718000000000")
	require.NoError(t, err)

	assert.Equal(t, "conn_1718000000000", id.String())
	assert.False(t, id.IsUUID())

	_, err = NewConnectionIDFromString("   ")
	assert.Error(t, err)
}

func TestConnectionID_JSON(t *testing.T) {
	id := NewConnectionID()

	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var decoded ConnectionID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Equals(id))

	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

func TestNewRelationshipType(t *testing.T) {
	assert.Equal(t, "family", NewRelationshipType("  family ", "friend").String())
	assert.Equal(t, "friend", NewRelationshipType("", "friend").String())
	assert.Equal(t, "best friend forever", NewRelationshipType("best friend forever", "friend").String())
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONScan(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"status":"approved"}`)))
	assert.Equal(t, "approved", j["status"])

	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)
}

func TestJSONUnmarshal(t *testing.T) {
	var p struct {
		Raw JSON `json:"raw"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"raw":{"id":42}}`), &p))
	assert.Equal(t, float64(42), p.Raw["id"])
}

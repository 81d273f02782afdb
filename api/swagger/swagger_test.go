package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	paths := doc["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/api/v1/simulation/advance-week")
	assert.Contains(t, paths, "/api/v1/simulation/seed")
}

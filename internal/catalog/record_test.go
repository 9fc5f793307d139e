package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameListAcceptsStringOrList(t *testing.T) {
	var rec Record

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"A","franchise":"Zelda","studio":["Nintendo","Monolith"]}`), &rec))
	assert.Equal(t, NameList{"Zelda"}, rec.Franchise)
	assert.Equal(t, NameList{"Nintendo", "Monolith"}, rec.Studio)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"A","franchise":""}`), &rec))
	assert.Empty(t, rec.Franchise)

	assert.Error(t, json.Unmarshal([]byte(`{"franchise":7}`), &rec))
}

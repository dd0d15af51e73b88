package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	data, err := generate()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "vfinder Configuration", schema["title"])

	props := schema["properties"].(map[string]any)
	for _, key := range []string{"logging", "server", "app_url", "storages", "public_links", "action", "adapters"} {
		assert.Contains(t, props, key)
	}

	storages := props["storages"].(map[string]any)
	item := storages["items"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, []any{"local", "memory", "s3", "badger"}, item["type"].(map[string]any)["enum"])

	logging := props["logging"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, []any{"text", "json"}, logging["format"].(map[string]any)["enum"])

	server := props["server"].(map[string]any)["properties"].(map[string]any)
	timeout := server["shutdown_timeout"].(map[string]any)
	assert.Equal(t, "string", timeout["type"])
}

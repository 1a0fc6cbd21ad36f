package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessAndDecodePayload(t *testing.T) {
	out := Success(Payload{
		Engine:  "rpgm",
		Source:  "/games/demo",
		Strings: []TextEntry{{Source: "Hello", Path: "data/Map001.json", Key: "events[1].name"}},
	})
	require.False(t, out.Failed())
	assert.Equal(t, FormatJSON, out.Format)
	assert.Contains(t, out.Payload, `"filesProcessed":0`)
	assert.NotContains(t, out.Payload, `"text"`)

	p, err := DecodePayload(out)
	require.NoError(t, err)
	assert.Equal(t, "rpgm", p.Engine)
	require.Len(t, p.Strings, 1)
	assert.Equal(t, "events[1].name", p.Strings[0].Key)
}

func TestFailure(t *testing.T) {
	out := Failure("Path does not exist")
	assert.True(t, out.Failed())
	assert.Empty(t, out.Payload)
	assert.EqualError(t, out.Err(), "Path does not exist")

	_, err := DecodePayload(out)
	assert.EqualError(t, err, "Path does not exist")
}

func TestTextEntry_Translated(t *testing.T) {
	assert.False(t, TextEntry{Source: "a"}.Translated())
	assert.True(t, TextEntry{Source: "a", Text: "b"}.Translated())
}

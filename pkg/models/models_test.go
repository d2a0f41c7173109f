package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Software Engineer", "software engineer"},
		{"  SOFTWARE ENGINEER\t", "software engineer"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

func TestQueryKeyNormalize(t *testing.T) {
	k := QueryKey{Query: "  What Skills are needed? ", OccupationName: " Software Engineer", Section: " Skills "}.Normalize()
	assert.Equal(t, "What Skills are needed?", k.Query)
	assert.Equal(t, "software engineer", k.OccupationName)
	assert.Equal(t, "skills", k.Section)

	other := QueryKey{Query: "What skills are needed?", OccupationName: "software engineer", Section: "skills"}.Normalize()
	assert.NotEqual(t, k.String(), other.String())
}

func TestQueryRecordKey(t *testing.T) {
	r := QueryRecord{Query: "q", OccupationName: "Chef", Section: "tasks"}
	assert.Equal(t, QueryKey{Query: "q", OccupationName: "Chef", Section: "tasks"}, r.Key())
}

func TestQueryHitRate(t *testing.T) {
	assert.Zero(t, CacheStats{}.QueryHitRate())
	assert.InDelta(t, 0.75, CacheStats{QueryHits: 3, QueryMisses: 1}.QueryHitRate(), 1e-9)
}

func TestAnthropicResponseText(t *testing.T) {
	r := AnthropicResponse{Content: []AnthropicContent{
		{Type: "text", Text: "Hello "},
		{Type: "tool_use"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "Hello world", r.Text())
}

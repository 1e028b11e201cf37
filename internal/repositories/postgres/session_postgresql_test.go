package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		want      string
	}{
		{"defaults", "", "", "created_at desc"},
		{"known column asc", "topic", "asc", "topic asc"},
		{"known column desc", "expires_at", "desc", "expires_at desc"},
		{"unknown column falls back", "score; DROP TABLE test_sessions", "asc", "created_at asc"},
		{"unknown order falls back", "status", "sideways", "status desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.sortBy, tt.sortOrder))
		})
	}
}

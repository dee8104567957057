package utils

import (
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
)

func TestGenerateInviteCode(t *testing.T) {
	format := regexp.MustCompile(`^[A-Z2-7]{4}(-[A-Z2-7]{4}){3}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		require.Regexp(t, format, code)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	assert.Equal(t, "K7QM-2XRD-PW4A-J9TB", NormalizeInviteCode("  k7qm-2xrd-pw4a-j9tb\n"))
	assert.Equal(t, "", NormalizeInviteCode("   "))
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"page=3&limit=10", PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"page=0&limit=1000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"page=abc&limit=-5", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"page=2&limit=100", PaginationParams{Page: 2, Limit: 100, Offset: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

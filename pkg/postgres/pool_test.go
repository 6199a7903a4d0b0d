package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSSLModeAddsWhenMissing(t *testing.T) {
	got := withSSLMode("postgres://u:p@db:5432/scan", "require")
	assert.Equal(t, "postgres://u:p@db:5432/scan?sslmode=require", got)
}

func TestWithSSLModeKeepsExplicitValue(t *testing.T) {
	in := "postgres://u:p@db:5432/scan?sslmode=disable"
	assert.Equal(t, in, withSSLMode(in, "require"))
}

func TestWithSSLModeEmptyModeIsNoop(t *testing.T) {
	in := "postgres://db/scan"
	assert.Equal(t, in, withSSLMode(in, ""))
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"projectmanager/configs"
)

func TestPostgresDSN(t *testing.T) {
	cfg := configs.Config{DBHost: "db", DBPort: 5432, DBUser: "app", DBPassword: "pw"}

	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=tracker sslmode=disable",
		PostgresDSN(cfg, "tracker"))
}

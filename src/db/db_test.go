package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDB(t *testing.T) {
	gormDB, _ := NewMockDB()
	db = gormDB

	assert.Equal(t, db.Name(), "testdb")
}

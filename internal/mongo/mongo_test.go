package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{Database: "view_bot"})
	assert.EqualError(t, err, "MongoDB URI cannot be empty")

	_, err = NewClient(Config{URI: "mongodb://localhost:27017"})
	assert.EqualError(t, err, "database name cannot be empty")
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close(context.Background()))
	assert.Nil(t, c.Database())
	assert.Error(t, c.Ping(context.Background()))
}

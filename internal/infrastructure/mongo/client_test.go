package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectFailsWhenPingFails(t *testing.T) {
	start := time.Now()
	client, err := Connect(context.Background(), "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=300", 5*time.Second)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "ping mongo")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectRejectsInvalidURI(t *testing.T) {
	client, err := Connect(context.Background(), "not-a-uri", time.Second)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "connect mongo")
}

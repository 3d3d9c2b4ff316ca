package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTimezone_RejectsInjection(t *testing.T) {
	db := &DB{}
	for _, tz := range []string{"UTC'; DROP TABLE blends; --", "Europe/Berlin;"} {
		err := SetTimezone(db, tz)
		require.Error(t, err, tz)
		assert.Contains(t, err.Error(), "invalid timezone")
	}
}

func TestSetTimezone_EmptyIsNoop(t *testing.T) {
	assert.NoError(t, SetTimezone(&DB{}, ""))
}

func TestNilHandlesAreNoops(t *testing.T) {
	assert.NoError(t, Close(nil))
	assert.NoError(t, Ping(context.Background(), nil))
	assert.NoError(t, AutoMigrate(nil))
}

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/clearyfi/internal/store"
)

func TestReplayStoredPayload(t *testing.T) {
	st := testStore(t)
	id, err := st.StoreRawPayload(0, SourceOpenWeather, ForecastEndpoint, "Moscow", []byte(forecastJSON))
	require.NoError(t, err)

	fc, result, err := Replay(st, id)
	require.NoError(t, err)
	assert.Equal(t, "Moscow", fc.Location.Name)
	assert.Len(t, fc.Samples, 4)
	assert.Equal(t, 4, result.RecordCount)
	assert.Equal(t, 1, result.ParseErrors)
	assert.Equal(t, len(forecastJSON), result.ResponseSize)
}

func TestReplayErrors(t *testing.T) {
	st := testStore(t)

	_, _, err := Replay(st, 42)
	assert.ErrorIs(t, err, store.ErrPayloadNotFound)

	id, err := st.StoreRawPayload(0, SourceOpenWeather, ForecastEndpoint, "Moscow", []byte("not json"))
	require.NoError(t, err)
	_, _, err = Replay(st, id)
	assert.ErrorContains(t, err, "decode payload")
}

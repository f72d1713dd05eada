package ingest

import (
	"fmt"

	"github.com/lox/clearyfi/internal/store"
)

// Replay decodes a stored OpenWeather response, so an analysis can be
// reproduced from exactly what the provider returned.
func Replay(st *store.Store, payloadID int64) (*Forecast, *FetchResult, error) {
	body, err := st.GetRawPayload(payloadID)
	if err != nil {
		return nil, nil, fmt.Errorf("load payload %d: %w", payloadID, err)
	}
	result := &FetchResult{ResponseSize: len(body)}
	fc, err := parseForecast(body, result)
	if err != nil {
		return nil, result, fmt.Errorf("decode payload %d: %w", payloadID, err)
	}
	return fc, result, nil
}

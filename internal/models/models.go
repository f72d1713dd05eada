package models

import (
	"database/sql"
	"time"
)

// ForecastSample is one 3-hour forecast slot as delivered by the weather provider.
type ForecastSample struct {
	Time          time.Time
	Temp          float64
	Humidity      float64
	WindSpeed     float64
	WindGust      float64
	Visibility    sql.NullFloat64 // metres, absent on some slots
	Precipitation float64         // rain + snow volume, mm
	Conditions    []string        // "Rain", "Snow", "Clear", ...
}

type Subscriber struct {
	UserID           int64
	ChatID           int64
	Username         string
	City             string
	IsActive         bool
	NotificationTime string // "HH:MM" in the subscriber's local time
	TimezoneOffset   int    // hours east of UTC
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LocalNow returns now shifted into the subscriber's fixed-offset zone.
func (s Subscriber) LocalNow(now time.Time) time.Time {
	return now.In(time.FixedZone("", s.TimezoneOffset*3600))
}

type Location struct {
	Name    string // name as returned by the provider
	Country string
	Lat     float64
	Lon     float64
}

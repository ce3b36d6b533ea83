package www

import (
	"net/url"
	"strconv"
	"time"

	"github.com/icodeforyou/malar-go/hours"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// timeOrDefault reads an ISO-8601 query parameter. Values without an offset
// are Stockholm time.
func timeOrDefault(u *url.URL, key string, defaultValue time.Time) (time.Time, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	return hours.ParseIso(v)
}

package middleware

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated admin's numeric ID from the
// context, or 0 when unauthenticated. JWT numeric claims decode as
// float64, so several shapes are accepted.
func CurrentUserID(c echo.Context) uint64 {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	}
	return 0
}

// identityKey returns a stable string form of the caller's identity
// for rate-limit keying. Unauthenticated callers share "anon".
func identityKey(c echo.Context) string {
	if id := CurrentUserID(c); id != 0 {
		return fmt.Sprintf("%d", id)
	}
	return "anon"
}

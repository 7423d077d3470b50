package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
)

// UserKey is the context key BearerAuth stores the authenticated user under.
const UserKey = "user"

// CurrentUser returns the user stored by BearerAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(UserKey).(model.User)
	return u, ok
}

// userID identifies the caller for rate limit keys; "anon" when the
// request is unauthenticated.
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}

package identity

import "github.com/gin-gonic/gin"

// Identity is the creator of an upload or batch: either an authenticated
// user or an anonymous caller identified by IP only. The two are mutually
// exclusive for quota counting.
type Identity struct {
	UserID  *int64
	IsAdmin bool
	IP      string
}

func (i Identity) Authenticated() bool {
	return i.UserID != nil
}

// FromGin builds an Identity from the values the auth middleware put on the
// context. Anonymous requests yield an IP-only identity.
func FromGin(c *gin.Context) Identity {
	id := Identity{IP: c.ClientIP()}
	if v, exists := c.Get("user_id"); exists {
		if userID, ok := v.(int64); ok {
			id.UserID = &userID
			id.IsAdmin = c.GetString("role") == "admin"
		}
	}
	return id
}

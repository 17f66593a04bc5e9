package server

import "github.com/gin-gonic/gin"

const flashCookieName = "notewall_flash"

// Flash messages survive exactly one redirect: set before redirecting,
// popped by the next page render.

func setFlash(c *gin.Context, message string) {
	c.SetCookie(flashCookieName, message, 60, "/", "", false, true)
}

func popFlash(c *gin.Context) string {
	message, err := c.Cookie(flashCookieName)
	if err != nil || message == "" {
		return ""
	}
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)
	return message
}

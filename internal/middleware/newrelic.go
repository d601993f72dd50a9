package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicErrors records handler errors and the ride being served on the
// request's New Relic transaction. It must run after nrgin.Middleware.
func NewRelicErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("resource_id", id)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

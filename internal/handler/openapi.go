package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

// OpenAPIDoc serves the registered swagger document. The document is
// rendered once on first request.
func OpenAPIDoc(info *swag.Spec) gin.HandlerFunc {
	var (
		once sync.Once
		doc  []byte
	)
	return func(c *gin.Context) {
		once.Do(func() { doc = []byte(info.ReadDoc()) })
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	}
}

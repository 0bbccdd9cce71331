package middleware

import (
	"net/http"

	"sistema-servicios/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ActorHeader = "X-Usuario-ID"
	ActorKey    = "actor"
)

// Actor reads the acting user from X-Usuario-ID. Identity is established by
// the gateway in front of this service; here it is only parsed and recorded.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(ActorHeader))
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Usuario requerido (X-Usuario-ID)"))
			return
		}
		c.Set(ActorKey, id)
		c.Next()
	}
}

// GetActor returns the user set by Actor.
func GetActor(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(ActorKey).(uuid.UUID)
	return id
}

package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/handlers"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
)

const clientSessionKey = "cid"

// ClientIdentity assigns every browser a stable anonymous client id via the
// cookie session. The quiz store registry and the durable answer cache are
// keyed by this id, so it must exist before any quiz route runs.
func ClientIdentity(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		cid, ok := session.Get(clientSessionKey).(string)
		if !ok || cid == "" {
			cid = uuid.NewString()
			session.Set(clientSessionKey, cid)
			if err := session.Save(); err != nil {
				log.Warn("could not persist client session", zap.Error(err))
			}
		}
		c.Set(handlers.ClientIDContextKey, cid)
		c.Next()
	}
}

// AccountRequired resolves the Authorization bearer token to an account and
// aborts with 401 when it is missing or unknown.
func AccountRequired(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		account, err := repository.GetAccountByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}
		c.Set(handlers.AccountContextKey, account)
		c.Next()
	}
}

package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/workflow"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// authContextFromGin 组装业务层使用的调用者身份。
func authContextFromGin(c *gin.Context) (workflow.AuthContext, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return workflow.AuthContext{}, false
	}
	return workflow.AuthContext{
		CandidateID: userID,
		IsAdmin:     c.GetBool(middleware.IsAdminKey),
	}, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

package handler

import (
	"github.com/gin-gonic/gin"
)

// GetUserID extracts the operator user ID from the Gin context
func GetUserID(c *gin.Context) int64 {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	userID, ok := userIDVal.(int64)
	if !ok {
		return 0
	}
	return userID
}

// GetBranchID extracts the branch ID from the Gin context
func GetBranchID(c *gin.Context) int64 {
	branchIDVal, exists := c.Get("branch_id")
	if !exists {
		return 0
	}
	branchID, ok := branchIDVal.(int64)
	if !ok {
		return 0
	}
	return branchID
}

package ports

import (
	"github.com/gin-gonic/gin"
)

type AuthHTTPHandler interface {
	Signup(c *gin.Context)
	Login(c *gin.Context)
}

type StreamHTTPHandler interface {
	CreateStream(c *gin.Context)
	GetStream(c *gin.Context)
	ListStreams(c *gin.Context)
	UpdateStream(c *gin.Context)
	DeleteStream(c *gin.Context)
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gptuessr/src/app/http/response"
	"gptuessr/src/app/middleware"
)

// fail attaches err for the logging middleware and writes the mapped response.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.FromDomainError(c, err, middleware.GetRequestID(c))
}

func badRequest(c *gin.Context, message string) {
	response.BadRequest(c, message, middleware.GetRequestID(c))
}

func parseGameID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("game_id"))
	if err != nil {
		badRequest(c, "invalid game id")
		return uuid.Nil, false
	}
	return id, true
}

func parseRound(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("round"))
	if err != nil || n < 1 {
		badRequest(c, "invalid round number")
		return 0, false
	}
	return n, true
}

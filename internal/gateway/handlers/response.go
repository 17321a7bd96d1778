package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const requestTimeout = 5 * time.Second

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// handleServiceError maps service status codes onto HTTP statuses.
func handleServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	s, ok := status.FromError(err)
	if !ok {
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Error("unexpected service error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("Unknown service error"))
		return
	}

	switch s.Code() {
	case codes.InvalidArgument:
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(s.Message()))
	case codes.NotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(s.Message()))
	case codes.FailedPrecondition, codes.Aborted, codes.AlreadyExists:
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse(s.Message()))
	case codes.DeadlineExceeded, codes.Canceled:
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, errorResponse("Request timed out"))
	default:
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"code":       s.Code().String(),
		}).Error(s.Message())
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("Service error: "+s.Message()))
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func parseID(c *gin.Context, param, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+what+" ID"))
		return 0, false
	}
	return uint(id), true
}

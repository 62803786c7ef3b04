package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// Codes answered by the controllers themselves rather than through errorTable.
const (
	codeBadPayload  = 40000
	codeBadID       = 40004
	codeUnknownUser = 40104
	codeNoSession   = 40110
	codeInternal    = 50000
)

type errorMapping struct {
	sentinel error
	status   int
	code     int
}

// errorTable maps service sentinels to HTTP status and envelope code.
// Order matters only for errors wrapping more than one sentinel.
var errorTable = []errorMapping{
	{services.ErrValidation, http.StatusBadRequest, 40001},
	{services.ErrDuplicateEmail, http.StatusBadRequest, 40002},
	{services.ErrInvalidProviderToken, http.StatusBadRequest, 40003},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, 40101},
	{services.ErrInvalidToken, http.StatusUnauthorized, 40102},
	{services.ErrEmailNotVerified, http.StatusUnauthorized, 40103},
	{services.ErrForbidden, http.StatusForbidden, 40301},
	{services.ErrUserNotFound, http.StatusNotFound, 40401},
	{services.ErrNotFound, http.StatusNotFound, 40402},
	{services.ErrProviderUnavailable, http.StatusBadGateway, 50201},
}

// statusFor returns the HTTP status and envelope code for err.
func statusFor(err error) (int, int) {
	for _, m := range errorTable {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// respondError writes err in the standard envelope. Unknown errors are logged
// and reported without detail.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("route", ctx.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	utils.Error(ctx, status, code, services.Message(err))
}

func badPayload(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, codeBadPayload, "invalid request payload")
}

// idParam parses a positive numeric path parameter.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, codeBadID, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

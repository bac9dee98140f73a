package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/transport/tcp"
)

// toCoreError classifies relay errors into codes the API reports.
func toCoreError(err error) *core.CoreError {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		return coreErr
	}

	switch {
	case errors.Is(err, core.ErrClientNotFound):
		return core.NewCoreError(core.ErrCodeClientNotFound, err)
	case errors.Is(err, core.ErrEmptyMessage):
		return core.NewCoreError(core.ErrCodeBadRequest, err)
	case errors.Is(err, tcp.ErrNotActive):
		return core.NewCoreError(core.ErrCodeNotActive, err)
	case errors.Is(err, tcp.ErrAlreadyActive):
		return core.NewCoreError(core.ErrCodeAlreadyActive, err)
	case errors.Is(err, tcp.ErrAddressRequired),
		errors.Is(err, tcp.ErrNotIPv4),
		errors.Is(err, tcp.ErrPortOutOfRange):
		return core.NewCoreError(core.ErrCodeInvalidAddress, err)
	default:
		return &core.CoreError{Message: err.Error(), Err: err}
	}
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeClientNotFound:
		return http.StatusNotFound
	case core.ErrCodeBadRequest, core.ErrCodeInvalidAddress:
		return http.StatusBadRequest
	case core.ErrCodeNotActive, core.ErrCodeAlreadyActive:
		return http.StatusConflict
	case core.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	coreErr := toCoreError(err)
	return statusForCode(coreErr.Code), ErrorResponse{Error: coreErr.Message, Code: coreErr.Code}
}

func parseClientID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, core.NewCoreError(core.ErrCodeBadRequest, errors.New("invalid client id"))
	}
	return id, nil
}

package api

import (
	"context"

	"github.com/linguapath/learnmap/internal/errors"
	"github.com/linguapath/learnmap/internal/logger"
)

// handleError centralizes the conversion of failures into responses
func handleError(ctx context.Context, err error) Response {
	log := logger.FromContext(ctx).WithPrefix("api")

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		// Wrap unknown errors as internal errors
		appErr = errors.NewInternalError(err)
	}

	switch appErr.Kind {
	case errors.KindInternal:
		log.Error("server error: %v", appErr)
	case errors.KindConflict:
		log.Warn("conflict: %v", appErr)
	default:
		log.Debug("client error: %v", appErr)
	}

	return Response{
		Success: false,
		Code:    appErr.Kind,
		Message: appErr.Message,
	}
}

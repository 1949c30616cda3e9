package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the service logger and attaches it to the context, so
// any layer can pick it up again with zerolog.Ctx.
func NewLogger(ctx context.Context, serviceName, serviceVersion string) (context.Context, zerolog.Logger) {
	logger := log.With().
		Str("service", strings.ToLower(serviceName)).
		Str("version", serviceVersion).
		Logger()

	return logger.WithContext(ctx), logger
}

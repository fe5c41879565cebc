package redis

import (
	"context"
	"fmt"

	"github.com/hookdeck/redishook/internal/logging"
	r "github.com/redis/go-redis/v9"
)

// printfLogger routes go-redis internal messages (pool and reconnect
// notices) through the application logger.
type printfLogger struct {
	logger *logging.Logger
}

func (l *printfLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	l.logger.Ctx(ctx).Warn(fmt.Sprintf(format, v...))
}

// SetLogger replaces the process-wide go-redis logger.
func SetLogger(logger *logging.Logger) {
	r.SetLogger(&printfLogger{logger: logger})
}

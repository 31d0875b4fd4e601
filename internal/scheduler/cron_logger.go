package scheduler

import (
	"context"
	"fmt"

	"github.com/quillpost/internal/logger"
	"github.com/robfig/cron/v3"
)

// cronLogger 把 cron 内部日志转到应用日志，键值对展开为字段。
type cronLogger struct {
	log logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "cron: "+msg, cronFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cronFields(keysAndValues), logger.Err(err))
	l.log.Error(context.Background(), "cron: "+msg, fields...)
}

func cronFields(keysAndValues []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			fields = append(fields, logger.F(key, nil))
			break
		}
		fields = append(fields, logger.F(key, keysAndValues[i+1]))
	}
	return fields
}

package notifier

import "go.uber.org/zap"

// ZapNotifier logs progress events through the application logger. CLI runs
// use it in place of (or alongside) the SSE hub.
type ZapNotifier struct {
	logger *zap.Logger
}

// NewZapNotifier creates a notifier writing to the given logger.
func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	return &ZapNotifier{logger: logger}
}

func (n *ZapNotifier) Send(shop string, event Event) {
	fields := []zap.Field{
		zap.String("shop", shop),
		zap.String("type", string(event.Type)),
		zap.Int("processed", event.Processed),
		zap.Int("total", event.Total),
	}
	if event.ProductTitle != "" {
		fields = append(fields, zap.String("product", event.ProductTitle))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if event.Stats != nil {
		fields = append(fields,
			zap.Int("created", event.Stats.Created),
			zap.Int("updated", event.Stats.Updated),
			zap.Int("deleted", event.Stats.Deleted),
			zap.Int("errored", event.Stats.Errored),
		)
	}
	n.logger.Info("Sync progress", fields...)
}

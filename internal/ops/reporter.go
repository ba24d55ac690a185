// Package ops reports anomalies that need an operator rather than a user.
package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"animesanta/internal/notify"
	"animesanta/internal/paas"
)

// Reporter fans an anomaly out to the log, the PaaS log API and an optional
// operator chat.
type Reporter struct {
	Logger         *zap.Logger
	Paas           *paas.Client
	Notifier       *notify.Notifier
	OperatorChatID int64
}

func (r *Reporter) Anomaly(ctx context.Context, action string, err error, details map[string]any) {
	r.report(ctx, "warn", action, err, details)
}

func (r *Reporter) Failure(ctx context.Context, action string, err error, details map[string]any) {
	r.report(ctx, "error", action, err, details)
}

func (r *Reporter) report(ctx context.Context, level, action string, err error, details map[string]any) {
	if r == nil {
		return
	}
	all := make(map[string]any, len(details)+1)
	for k, v := range details {
		all[k] = v
	}
	if err != nil {
		all["error"] = err.Error()
	}
	if r.Logger != nil {
		fields := []zap.Field{zap.String("action", action), zap.Any("details", details)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if level == "error" {
			r.Logger.Error("operator report", fields...)
		} else {
			r.Logger.Warn("operator report", fields...)
		}
	}
	if r.Paas != nil {
		paas.LogBestEffortCtx(paas.WithClient(ctx, r.Paas), "santa_"+action, level, all)
	}
	if r.Notifier != nil && r.OperatorChatID != 0 {
		r.Notifier.Text(ctx, r.OperatorChatID, Format(level, action, all))
	}
}

// Format renders a report as one chat message with sorted keys.
func Format(level, action string, details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(level), action)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, details[k])
	}
	return b.String()
}

package provisioning

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-logr/logr"
)

// LogrObserver implements Observer on top of a logr.Logger, for embedding
// the orchestrator in programs that already carry a structured logger.
type LogrObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogrObserver wraps l.
func NewLogrObserver(l logr.Logger) *LogrObserver {
	return &LogrObserver{log: l, fields: map[string]string{}}
}

// Printf implements Logger at verbosity 1.
func (o *LogrObserver) Printf(format string, v ...any) {
	o.log.V(1).Info(fmt.Sprintf(format, v...))
}

// Event implements Observer. Failure events are logged as errors.
func (o *LogrObserver) Event(event Event) {
	mergeFields(&event, o.fields)

	kv := make([]any, 0, 2*len(event.Fields)+6)
	kv = append(kv, "event", string(event.Type))
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
		kv = append(kv, k, event.Fields[k])
	}

	switch event.Type {
	case EventPhaseFailed, EventResourceFailed:
		o.log.Error(nil, event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// Progress implements Observer.
func (o *LogrObserver) Progress(phase string, current, total int) {
	o.log.V(1).Info("progress", "phase", phase, "current", current, "total", total)
}

// WithFields implements Observer.
func (o *LogrObserver) WithFields(fields map[string]string) Observer {
	merged := maps.Clone(o.fields)
	maps.Copy(merged, fields)
	return &LogrObserver{log: o.log, fields: merged}
}

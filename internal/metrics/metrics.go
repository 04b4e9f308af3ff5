package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Registry counts preview pipeline activity across all connections.
type Registry struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	payloadsSent      atomic.Int64
	payloadsSkipped   atomic.Int64
	readFailures      atomic.Int64
	renderFailures    atomic.Int64
	detectorFailures  atomic.Int64
}

var Default = &Registry{}

func (r *Registry) ConnectionOpened() {
	if r == nil {
		return
	}
	r.connectionsActive.Add(1)
	r.connectionsTotal.Add(1)
}

func (r *Registry) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connectionsActive.Add(-1)
}

func (r *Registry) IncPayloadsSent() {
	if r == nil {
		return
	}
	r.payloadsSent.Add(1)
}

// IncPayloadsSkipped counts significant changes that produced no payload,
// such as an empty read.
func (r *Registry) IncPayloadsSkipped() {
	if r == nil {
		return
	}
	r.payloadsSkipped.Add(1)
}

func (r *Registry) IncReadFailures() {
	if r == nil {
		return
	}
	r.readFailures.Add(1)
}

func (r *Registry) IncRenderFailures() {
	if r == nil {
		return
	}
	r.renderFailures.Add(1)
}

func (r *Registry) IncDetectorFailures() {
	if r == nil {
		return
	}
	r.detectorFailures.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ConnectionsActive int64
	ConnectionsTotal  int64
	PayloadsSent      int64
	PayloadsSkipped   int64
	ReadFailures      int64
	RenderFailures    int64
	DetectorFailures  int64
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		ConnectionsActive: r.connectionsActive.Load(),
		ConnectionsTotal:  r.connectionsTotal.Load(),
		PayloadsSent:      r.payloadsSent.Load(),
		PayloadsSkipped:   r.payloadsSkipped.Load(),
		ReadFailures:      r.readFailures.Load(),
		RenderFailures:    r.renderFailures.Load(),
		DetectorFailures:  r.detectorFailures.Load(),
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}
	snapshot := r.Snapshot()
	writeGauge(writer, "watchfile_connections_active", "Preview connections currently open", snapshot.ConnectionsActive)
	writeCounter(writer, "watchfile_connections_total", "Preview connections accepted", snapshot.ConnectionsTotal)
	writeCounter(writer, "watchfile_payloads_sent_total", "Rendered payloads pushed to clients", snapshot.PayloadsSent)
	writeCounter(writer, "watchfile_payloads_skipped_total", "Changes that produced no payload", snapshot.PayloadsSkipped)
	writeCounter(writer, "watchfile_read_failures_total", "Failed reads of the watched file", snapshot.ReadFailures)
	writeCounter(writer, "watchfile_render_failures_total", "Payloads dropped by the renderer", snapshot.RenderFailures)
	writeCounter(writer, "watchfile_detector_failures_total", "Watch loops ended by the notification source", snapshot.DetectorFailures)
	return nil
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func writeGauge(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s gauge\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Source supplies snapshots to the exporter. *authgate.Gateway implements it.
type Source interface {
	MetricsSnapshot() authgate.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter serves gateway metrics in Prometheus text exposition format.
type Exporter struct {
	source Source
}

// New returns an exporter reading from gw.
func New(gw *authgate.Gateway) *Exporter {
	return &Exporter{source: gw}
}

func NewFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render output. Disabled metrics produce an empty 200.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(e.appendTo(nil))
	})
}

// Render returns the exposition text, or "" when metrics are disabled.
func (e *Exporter) Render() string {
	return string(e.appendTo(nil))
}

func (e *Exporter) appendTo(buf []byte) []byte {
	if e == nil || e.source == nil {
		return buf
	}
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return buf
	}

	w := exposition{buf: buf}
	for _, def := range internaldefs.CounterDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		w.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			w.sample(def.Name+"_bucket", le, buckets[i])
		}
		w.sample(def.Name+"_count", "", buckets[len(buckets)-1])
		// Snapshots carry no sum.
		w.sample(def.Name+"_sum", "", 0)
	}
	w.family("authgate_audit_dropped_total", "Audit events dropped on a full dispatcher queue.", "counter")
	w.sample("authgate_audit_dropped_total", "", dropped)
	return w.buf
}

type exposition struct {
	buf []byte
}

func (x *exposition) family(name, help, kind string) {
	x.buf = append(x.buf, "# HELP "...)
	x.buf = append(x.buf, name...)
	x.buf = append(x.buf, ' ')
	x.buf = append(x.buf, helpEscaper.Replace(help)...)
	x.buf = append(x.buf, "\n# TYPE "...)
	x.buf = append(x.buf, name...)
	x.buf = append(x.buf, ' ')
	x.buf = append(x.buf, kind...)
	x.buf = append(x.buf, '\n')
}

// sample writes one line; a non-empty le adds the bucket label.
func (x *exposition) sample(name, le string, v uint64) {
	x.buf = append(x.buf, name...)
	if le != "" {
		x.buf = append(x.buf, `{le="`...)
		x.buf = append(x.buf, le...)
		x.buf = append(x.buf, `"}`...)
	}
	x.buf = append(x.buf, ' ')
	x.buf = strconv.AppendUint(x.buf, v, 10)
	x.buf = append(x.buf, '\n')
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

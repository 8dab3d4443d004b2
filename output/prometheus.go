package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"bwmon/config"
	"bwmon/model"
)

// DefaultListen prometheus 消费端默认监听地址
const DefaultListen = ":9102"

const prometheusHelp = `prometheus - 在 /metrics 暴露各接口的速率和累计值

  选项:
    listen=ADDR   监听地址 (默认 ` + DefaultListen + `)
`

// sample 一个接口在某次输出时的快照
type sample struct {
	node, intf string
	rate       [4]float64 // rx bytes, tx bytes, rx packets, tx packets
	total      [4]uint64
	attrs      []attrSample
}

type attrSample struct {
	name      string
	direction string
	value     uint64
}

type promOut struct {
	listen string

	mu       sync.Mutex
	snapshot []sample

	rateDesc  *prometheus.Desc
	totalDesc *prometheus.Desc
	attrDesc  *prometheus.Desc

	srv *http.Server
}

func newPrometheus(Settings) *promOut {
	labels := []string{"node", "interface", "direction", "unit"}
	return &promOut{
		listen: DefaultListen,
		rateDesc: prometheus.NewDesc("bwmon_interface_rate_per_second",
			"Per-second rate derived from the interface counters", labels, nil),
		totalDesc: prometheus.NewDesc("bwmon_interface_total",
			"Cumulative interface counter as reported by the input module", labels, nil),
		attrDesc: prometheus.NewDesc("bwmon_interface_attribute",
			"Secondary interface counter (errors, drops, queue length ...)",
			[]string{"node", "interface", "attribute", "direction"}, nil),
	}
}

func (p *promOut) Name() string { return "prometheus" }
func (p *promOut) Help() string { return prometheusHelp }

func (p *promOut) SetOpts(attrs []config.Attr) error {
	for _, a := range attrs {
		switch a.Type {
		case "listen":
			if a.Value == "" {
				return fmt.Errorf("option listen needs a value")
			}
			p.listen = a.Value
		default:
			return fmt.Errorf("unknown option %q", a.Type)
		}
	}
	return nil
}

func (p *promOut) Probe() bool { return true }

func (p *promOut) Init() error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(p); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", p.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", p.listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	p.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("output", p.Name()).WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("output", p.Name()).Infof("serving metrics on %s", ln.Addr())
	return nil
}

func (p *promOut) Pre(context.Context, *model.State) error { return nil }
func (p *promOut) Post(*model.State) error                 { return nil }

// Draw 在采集线程里拍快照；HTTP 请求只读快照，不碰 model.State
func (p *promOut) Draw(st *model.State) error {
	snap := make([]sample, 0, 16)
	st.ForeachNodeIntf(func(n *model.Node, i *model.Interface) {
		s := sample{
			node:  n.Name,
			intf:  qualifiedName(n, i),
			rate:  [4]float64{i.RxBytes.TPS, i.TxBytes.TPS, i.RxPackets.TPS, i.TxPackets.TPS},
			total: [4]uint64{i.RxBytes.Total, i.TxBytes.Total, i.RxPackets.Total, i.TxPackets.Total},
		}
		i.ForeachAttr(func(a *model.Attr) {
			if a.RxEnabled {
				s.attrs = append(s.attrs, attrSample{a.Type.String(), "rx", a.Rx})
			}
			if a.TxEnabled {
				s.attrs = append(s.attrs, attrSample{a.Type.String(), "tx", a.Tx})
			}
		})
		snap = append(snap, s)
	})

	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()
	return nil
}

func (p *promOut) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.rateDesc
	ch <- p.totalDesc
	ch <- p.attrDesc
}

var sampleLabels = [4][2]string{
	{"rx", "bytes"},
	{"tx", "bytes"},
	{"rx", "packets"},
	{"tx", "packets"},
}

func (p *promOut) Collect(ch chan<- prometheus.Metric) {
	p.mu.Lock()
	snap := p.snapshot
	p.mu.Unlock()

	for _, s := range snap {
		for k, l := range sampleLabels {
			ch <- prometheus.MustNewConstMetric(p.rateDesc, prometheus.GaugeValue, s.rate[k], s.node, s.intf, l[0], l[1])
			ch <- prometheus.MustNewConstMetric(p.totalDesc, prometheus.CounterValue, float64(s.total[k]), s.node, s.intf, l[0], l[1])
		}
		for _, a := range s.attrs {
			ch <- prometheus.MustNewConstMetric(p.attrDesc, prometheus.GaugeValue, float64(a.value), s.node, s.intf, a.name, a.direction)
		}
	}
}

func (p *promOut) Shutdown() {
	if p.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.srv.Shutdown(ctx); err != nil {
		log.WithField("output", p.Name()).WithError(err).Warn("metrics server shutdown")
	}
	p.srv = nil
}

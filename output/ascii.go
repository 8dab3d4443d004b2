package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"bwmon/config"
	"bwmon/model"
)

const asciiHelp = `ascii - 纯文本输出，适合管道和日志

  选项:
    diagram=TYPE   list | graph | details，可重复指定多个 (默认 list)
    header[=N]     打印表头，带 N 时每 N 次输出重复一次
    noheader       不打印表头
    quitafter=N    输出 N 次后退出
    height=N       图表高度
    xunit=UNIT     s | m | h | d | r
    yunit=UNIT     dynamic | b | k | m | g | t
    fgchar=C bgchar=C nchar=C   图表字符
`

const (
	headerNone = -1
	headerOnce = 0
)

type ascii struct {
	s Settings

	diagrams  []string
	header    int
	quitAfter int
	draws     int
}

func newASCII(s Settings) *ascii {
	return &ascii{s: s, header: headerOnce}
}

func (a *ascii) Name() string { return "ascii" }
func (a *ascii) Help() string { return asciiHelp }

func (a *ascii) SetOpts(attrs []config.Attr) error {
	for _, at := range attrs {
		if ok, err := a.s.setUnitOpt(at); ok {
			if err != nil {
				return err
			}
			continue
		}

		switch at.Type {
		case "diagram":
			switch d := strings.ToLower(at.Value); d {
			case "list", "graph", "details":
				a.diagrams = append(a.diagrams, d)
			default:
				return fmt.Errorf("unknown diagram %q", at.Value)
			}
		case "header":
			a.header = headerOnce
			if at.HasValue {
				n, err := strconv.Atoi(at.Value)
				if err != nil || n < 0 {
					return fmt.Errorf("option header needs a non-negative number")
				}
				a.header = n
			}
		case "noheader":
			a.header = headerNone
		case "quitafter":
			n, err := strconv.Atoi(at.Value)
			if err != nil || n <= 0 {
				return fmt.Errorf("option quitafter needs a positive number")
			}
			a.quitAfter = n
		default:
			return fmt.Errorf("unknown option %q", at.Type)
		}
	}
	return nil
}

func (a *ascii) Probe() bool { return true }

func (a *ascii) Init() error {
	if len(a.diagrams) == 0 {
		a.diagrams = []string{"list"}
	}
	return nil
}

func (a *ascii) Pre(context.Context, *model.State) error { return nil }
func (a *ascii) Post(*model.State) error                 { return nil }
func (a *ascii) Shutdown()                               {}

func (a *ascii) Draw(st *model.State) error {
	var b strings.Builder

	for _, d := range a.diagrams {
		switch d {
		case "list":
			a.drawList(&b, st)
		case "details":
			a.drawDetails(&b, st)
		case "graph":
			a.drawGraph(&b, st)
		}
	}

	if _, err := io.WriteString(a.s.Out, b.String()); err != nil {
		return err
	}

	a.draws++
	if a.quitAfter > 0 && a.draws >= a.quitAfter {
		return ErrQuit
	}
	return nil
}

func (a *ascii) showHeader() bool {
	switch {
	case a.header == headerNone:
		return false
	case a.draws == 0:
		return true
	case a.header > 0:
		return a.draws%a.header == 0
	}
	return false
}

func (a *ascii) nodeHeading(w io.Writer, st *model.State, n *model.Node) {
	if st.NumNodes() > 1 {
		fmt.Fprintf(w, "%s:\n", n.Name)
	}
}

func (a *ascii) drawList(w io.Writer, st *model.State) {
	if a.showHeader() {
		fmt.Fprintf(w, "%-20s %13s %8s %13s %8s\n", "Interface", "RX Rate", "RX #", "TX Rate", "TX #")
	}

	st.ForeachNode(func(n *model.Node) {
		a.nodeHeading(w, st, n)
		walk(n, func(i *model.Interface, depth int) {
			rx, rxUnit := model.Sumup(i.RxBytes.TPS, a.s.YUnit)
			tx, txUnit := model.Sumup(i.TxBytes.TPS, a.s.YUnit)
			fmt.Fprintf(w, "%-20s %10.2f%s %8.0f %10.2f%s %8.0f\n",
				strings.Repeat("  ", depth)+i.Name,
				rx, rxUnit, i.RxPackets.TPS,
				tx, txUnit, i.TxPackets.TPS)
		})
	})
}

func (a *ascii) drawDetails(w io.Writer, st *model.State) {
	st.ForeachNode(func(n *model.Node) {
		a.nodeHeading(w, st, n)
		walk(n, func(i *model.Interface, depth int) {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), i.Name)
			fmt.Fprintf(w, "  %-14s %16s %16s\n", "", "RX", "TX")
			i.ForeachAttr(func(at *model.Attr) {
				fmt.Fprintf(w, "  %-14s %16s %16s\n", at.Type,
					attrValue(at.Type, at.Rx, at.RxEnabled),
					attrValue(at.Type, at.Tx, at.TxEnabled))
			})
		})
	})
}

func (a *ascii) drawGraph(w io.Writer, st *model.State) {
	st.ForeachNode(func(n *model.Node) {
		a.nodeHeading(w, st, n)
		walk(n, func(i *model.Interface, _ int) {
			elem, xlabel := i.BytesHist.Select(a.s.XUnit, st.ReadInterval)
			g := NewGraph(elem, a.s.GraphHeight, a.s.FgChar, a.s.BgChar, a.s.NoiseChar, a.s.YUnit)
			fmt.Fprintf(w, "%s\n", i.Name)
			g.RX.Render(w, "RX", xlabel)
			g.TX.Render(w, "TX", xlabel)
		})
	})
}

// attrValue 字节类属性按 IEC 单位显示，其余加千分位；未启用的方向显示 -
func attrValue(t model.AttrType, v uint64, enabled bool) string {
	if !enabled {
		return "-"
	}
	if t == model.AttrBytes || t == model.AttrBacklog {
		return humanize.IBytes(v)
	}
	return humanize.Comma(int64(v))
}

// walk 顶层接口按下标顺序，子接口紧跟在父接口后面 (深度优先)
func walk(n *model.Node, fn func(i *model.Interface, depth int)) {
	var visit func(i *model.Interface, depth int)
	visit = func(i *model.Interface, depth int) {
		fn(i, depth)
		n.ForeachChild(i, func(c *model.Interface) {
			visit(c, depth+1)
		})
	}
	n.ForeachIntf(func(i *model.Interface) {
		if !i.IsChild {
			visit(i, 0)
		}
	})
}

package output

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"bwmon/config"
	"bwmon/model"
)

const cursesHelp = `curses - 交互式终端界面 (termui)

  按键:
    ↑ ↓        选择接口，到头后切换到下一个/上一个节点
    ← →        切换节点
    f          折叠/展开当前接口所属的设备
    S M H D R  图表横轴：秒 / 分 / 时 / 天 / 读取间隔
    g d l      显示/隐藏 图表 / 详情 / 列表
    ?          帮助
    q          退出 (y 确认，n 或 Esc 取消)

  选项:
    xunit=UNIT yunit=UNIT   同 ascii
`

const cursesHelpKeys = `
  ↑ ↓        选择接口
  ← →        切换节点
  f          折叠/展开设备
  S M H D R  图表横轴：秒 / 分 / 时 / 天 / 读取间隔
  g d l      显示/隐藏 图表 / 详情 / 列表
  ?          关闭帮助
  q          退出
`

type curses struct {
	s     Settings
	isTTY func() bool

	showList    bool
	showDetails bool
	showGraph   bool
	showHelp    bool
	helpDrawn   bool
	quitPending bool

	active bool
	once   sync.Once
	events <-chan ui.Event
	width  int
	height int

	grid    *ui.Grid
	list    *widgets.List
	details *widgets.Paragraph
	help    *widgets.Paragraph
	slRx    *widgets.Sparkline
	slTx    *widgets.Sparkline
	sgRx    *widgets.SparklineGroup
	sgTx    *widgets.SparklineGroup
}

func newCurses(s Settings) *curses {
	return &curses{
		s:           s,
		isTTY:       stdoutIsTTY,
		showList:    true,
		showDetails: true,
		showGraph:   true,
	}
}

func stdoutIsTTY() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (c *curses) Name() string { return "curses" }
func (c *curses) Help() string { return cursesHelp }

func (c *curses) SetOpts(attrs []config.Attr) error {
	for _, a := range attrs {
		ok, err := c.s.setUnitOpt(a)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown option %q", a.Type)
		}
	}
	return nil
}

func (c *curses) Probe() bool { return c.isTTY() }

func (c *curses) Init() error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to init termui: %w", err)
	}
	c.active = true

	// ===========================
	// UI 组件定义
	// ===========================

	// [上] 接口列表
	c.list = widgets.NewList()
	c.list.Title = " 接口 "
	c.list.TextStyle = ui.NewStyle(ui.ColorWhite)
	c.list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorGreen)
	c.list.WrapText = false
	c.list.BorderStyle.Fg = ui.ColorGreen

	// [中] 属性详情
	c.details = widgets.NewParagraph()
	c.details.Title = " 详情 "
	c.details.BorderStyle.Fg = ui.ColorYellow

	// [下] rx / tx 波形图
	c.slRx = widgets.NewSparkline()
	c.slRx.LineColor = ui.ColorGreen
	c.sgRx = widgets.NewSparklineGroup(c.slRx)
	c.sgRx.BorderStyle.Fg = ui.ColorGreen

	c.slTx = widgets.NewSparkline()
	c.slTx.LineColor = ui.ColorYellow
	c.sgTx = widgets.NewSparklineGroup(c.slTx)
	c.sgTx.BorderStyle.Fg = ui.ColorYellow

	c.help = widgets.NewParagraph()
	c.help.Title = " 帮助 "
	c.help.Text = cursesHelpKeys

	c.width, c.height = ui.TerminalDimensions()
	c.layout()

	c.events = ui.PollEvents()
	return nil
}

// layout 按当前显示开关重建网格
func (c *curses) layout() {
	var rows []interface{}
	var parts int
	if c.showList {
		parts++
	}
	if c.showDetails {
		parts++
	}
	if c.showGraph {
		parts++
	}
	if parts == 0 {
		c.showList, parts = true, 1
	}
	ratio := 1.0 / float64(parts)

	if c.showList {
		rows = append(rows, ui.NewRow(ratio, ui.NewCol(1.0, c.list)))
	}
	if c.showDetails {
		rows = append(rows, ui.NewRow(ratio, ui.NewCol(1.0, c.details)))
	}
	if c.showGraph {
		rows = append(rows, ui.NewRow(ratio,
			ui.NewCol(0.5, c.sgRx),
			ui.NewCol(0.5, c.sgTx),
		))
	}

	c.grid = ui.NewGrid()
	c.grid.SetRect(0, 0, c.width, c.height)
	c.grid.Set(rows...)

	c.help.SetRect(0, 0, c.width, c.height)
}

// Pre 非阻塞地处理积压的按键，有事件就立即重绘
func (c *curses) Pre(_ context.Context, st *model.State) error {
	if !c.active {
		return nil
	}

	dirty := false
	for {
		select {
		case e := <-c.events:
			if e.Type == ui.ResizeEvent {
				payload := e.Payload.(ui.Resize)
				c.width, c.height = payload.Width, payload.Height
				c.layout()
				ui.Clear()
				dirty = true
				continue
			}
			if e.Type != ui.KeyboardEvent {
				continue
			}
			relayout, err := c.handleKey(st, e.ID)
			if err != nil {
				return err
			}
			if relayout {
				c.layout()
				ui.Clear()
			}
			dirty = true
		default:
			if dirty {
				c.render(st)
			}
			return nil
		}
	}
}

// handleKey 处理一个按键；返回值表示是否需要重建布局
func (c *curses) handleKey(st *model.State, id string) (bool, error) {
	if id == "<C-c>" {
		return false, ErrQuit
	}

	if c.quitPending {
		switch id {
		case "y", "Y":
			return false, ErrQuit
		case "n", "N", "<Escape>":
			c.quitPending = false
		}
		return false, nil
	}

	switch id {
	case "q":
		c.quitPending = true
	case "<Escape>":
		c.showHelp = false
	case "?":
		c.showHelp = !c.showHelp
	case "f":
		st.Fold()
	case "<Down>", "j":
		selectNext(st)
	case "<Up>", "k":
		selectPrev(st)
	case "<Right>":
		if st.NextNode() != nil {
			st.FirstNode()
		}
		st.FirstIntf()
	case "<Left>":
		if st.PrevNode() != nil {
			st.LastNode()
		}
		st.FirstIntf()
	case "S":
		c.s.XUnit = model.XSec
	case "M":
		c.s.XUnit = model.XMin
	case "H":
		c.s.XUnit = model.XHour
	case "D":
		c.s.XUnit = model.XDay
	case "R":
		c.s.XUnit = model.XRead
	case "g":
		c.showGraph = !c.showGraph
		return true, nil
	case "d":
		c.showDetails = !c.showDetails
		return true, nil
	case "l":
		c.showList = !c.showList
		return true, nil
	}
	return false, nil
}

// selectNext 到达节点末尾时转到下一个节点的第一个接口，最后一个节点之后回到第一个
func selectNext(st *model.State) {
	if st.CurrentNode() == nil {
		st.FirstNode()
		st.FirstIntf()
		return
	}
	if err := st.NextIntf(); err == nil {
		return
	}
	if st.NextNode() != nil {
		st.FirstNode()
	}
	st.FirstIntf()
}

func selectPrev(st *model.State) {
	if st.CurrentNode() == nil {
		st.LastNode()
		lastVisible(st)
		return
	}
	if err := st.PrevIntf(); err == nil {
		return
	}
	if st.PrevNode() != nil {
		st.LastNode()
	}
	lastVisible(st)
}

// lastVisible 选中最后一个可见接口 (跳过被折叠的子接口)
func lastVisible(st *model.State) {
	if st.LastIntf() != nil {
		return
	}
	n := st.CurrentNode()
	if i := st.CurrentIntf(); i != nil && !n.Visible(i) {
		st.PrevIntf()
	}
}

func (c *curses) Draw(st *model.State) error {
	if !c.active {
		return nil
	}
	c.render(st)
	return nil
}

func (c *curses) Post(*model.State) error { return nil }

func (c *curses) render(st *model.State) {
	if c.showHelp {
		ui.Clear()
		ui.Render(c.help)
		c.helpDrawn = true
		return
	}
	if c.helpDrawn {
		ui.Clear()
		c.helpDrawn = false
	}

	if st.CurrentNode() == nil {
		st.FirstNode()
	}
	if st.CurrentIntf() == nil {
		st.FirstIntf()
	}

	rows, sel := listRows(st, c.s.YUnit)
	c.list.Rows = rows
	c.list.SelectedRow = max(sel, 0)
	c.list.Title = " 接口 "
	if c.quitPending {
		c.list.Title = " 确认退出? [y/n] "
	}

	i := st.CurrentIntf()
	if i == nil {
		c.details.Text = ""
		c.slRx.Data, c.slTx.Data = nil, nil
		ui.Render(c.grid)
		return
	}

	c.details.Text = detailsText(i)

	elem, xlabel := i.BytesHist.Select(c.s.XUnit, st.ReadInterval)
	rx, tx := elem.Recent()
	c.slRx.Data, c.slTx.Data = chronological(rx), chronological(tx)
	c.sgRx.Title = trendTitle("RX", xlabel, i.RxBytes.TPS, rx)
	c.sgTx.Title = trendTitle("TX", xlabel, i.TxBytes.TPS, tx)

	ui.Render(c.grid)
}

func (c *curses) Shutdown() {
	c.once.Do(func() {
		if c.active {
			ui.Close()
			c.active = false
		}
	})
}

// listRows 列表内容以及当前选中接口所在的行；节点多于一个时插入节点标题行
func listRows(st *model.State, y model.YUnit) ([]string, int) {
	var rows []string
	sel := -1
	cur := st.CurrentIntf()

	st.ForeachNode(func(n *model.Node) {
		if st.NumNodes() > 1 {
			rows = append(rows, fmt.Sprintf("[%s]", n.Name))
		}
		walk(n, func(i *model.Interface, depth int) {
			if !n.Visible(i) {
				return
			}
			mark := " "
			if i.Folded {
				mark = "+"
			}
			rx, rxUnit := model.Sumup(i.RxBytes.TPS, y)
			tx, txUnit := model.Sumup(i.TxBytes.TPS, y)
			if i == cur {
				sel = len(rows)
			}
			rows = append(rows, fmt.Sprintf("%s%-20s %10.2f%s %8.0f %10.2f%s %8.0f",
				mark, strings.Repeat("  ", depth)+i.Name,
				rx, rxUnit, i.RxPackets.TPS,
				tx, txUnit, i.TxPackets.TPS))
		})
	})
	return rows, sel
}

func detailsText(i *model.Interface) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", i.Name)
	if i.Handle != 0 {
		fmt.Fprintf(&b, " (handle %x:%x)", i.Handle>>16, i.Handle&0xffff)
	}
	fmt.Fprintf(&b, "\n  %-14s %16s %16s\n", "", "RX", "TX")
	fmt.Fprintf(&b, "  %-14s %16s %16s\n", "Total",
		humanize.IBytes(i.RxBytes.Total), humanize.IBytes(i.TxBytes.Total))
	i.ForeachAttr(func(a *model.Attr) {
		fmt.Fprintf(&b, "  %-14s %16s %16s\n", a.Type,
			attrValue(a.Type, a.Rx, a.RxEnabled),
			attrValue(a.Type, a.Tx, a.TxEnabled))
	})
	return b.String()
}

// chronological Recent 的结果是最新在前，波形图需要从左到右按时间排列
func chronological(recent []float64) []float64 {
	out := make([]float64, len(recent))
	for k, v := range recent {
		out[len(recent)-1-k] = v
	}
	return out
}

func peak(data []float64) float64 {
	m := 0.0
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	return m
}

// trendTitle 趋势图标题：实时速率和窗口内峰值
func trendTitle(dir, xlabel string, tps float64, samples []float64) string {
	return fmt.Sprintf(" %s 趋势 [%s] (实时: %s/s | 峰值: %s/s) ", dir, xlabel,
		humanize.IBytes(uint64(tps)), humanize.IBytes(uint64(peak(samples))))
}

package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"bwmon/config"
	"bwmon/model"
)

const csvHelp = `csv - 每次输出为每个接口追加一行 CSV

  列: timestamp,node,interface,handle,rx_bps,tx_bps,rx_pps,tx_pps

  选项:
    path=FILE   输出文件 (必填，追加写入；- 表示标准输出)
`

var csvHeader = []string{
	"timestamp",
	"node",
	"interface",
	"handle",
	"rx_bps",
	"tx_bps",
	"rx_pps",
	"tx_pps",
}

type csvOut struct {
	s    Settings
	path string

	w      io.Writer
	file   *os.File
	header bool
}

func newCSV(s Settings) *csvOut {
	return &csvOut{s: s}
}

func (c *csvOut) Name() string { return "csv" }
func (c *csvOut) Help() string { return csvHelp }

func (c *csvOut) SetOpts(attrs []config.Attr) error {
	for _, a := range attrs {
		switch a.Type {
		case "path":
			c.path = a.Value
		default:
			return fmt.Errorf("unknown option %q", a.Type)
		}
	}
	return nil
}

func (c *csvOut) Probe() bool { return c.path != "" }

func (c *csvOut) Init() error {
	if c.path == "-" {
		c.w = c.s.Out
		return nil
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// 追加到已有内容的文件时不再写表头
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		c.header = true
	}
	c.file, c.w = f, f
	return nil
}

func (c *csvOut) Pre(context.Context, *model.State) error { return nil }
func (c *csvOut) Post(*model.State) error                 { return nil }

func (c *csvOut) Draw(st *model.State) error {
	return c.write(st, time.Now())
}

func (c *csvOut) write(st *model.State, now time.Time) error {
	writer := csv.NewWriter(c.w)
	defer writer.Flush()

	if !c.header {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
		c.header = true
	}

	ts := now.UTC().Format(time.RFC3339Nano)

	var werr error
	st.ForeachNodeIntf(func(n *model.Node, i *model.Interface) {
		if werr != nil {
			return
		}
		record := []string{
			ts,
			n.Name,
			qualifiedName(n, i),
			strconv.FormatUint(uint64(i.Handle), 16),
			strconv.FormatFloat(i.RxBytes.TPS, 'f', 3, 64),
			strconv.FormatFloat(i.TxBytes.TPS, 'f', 3, 64),
			strconv.FormatFloat(i.RxPackets.TPS, 'f', 3, 64),
			strconv.FormatFloat(i.TxPackets.TPS, 'f', 3, 64),
		}
		werr = writer.Write(record)
	})
	if werr != nil {
		return werr
	}

	writer.Flush()
	return writer.Error()
}

func (c *csvOut) Shutdown() {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
}

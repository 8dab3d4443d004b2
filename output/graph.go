package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"bwmon/model"
)

// Table 一个方向的文本图表
type Table struct {
	Rows  [][]rune  // Rows[0] 是最上面一行，每行一列对应一个历史采样，最新的在最左
	Scale []float64 // 每行的刻度，已按 Unit 缩放，与 Rows 同序
	Unit  string
}

// Graph rx/tx 两张图表
type Graph struct {
	Height int
	RX     Table
	TX     Table
}

// NewGraph 从历史环的写游标往回取样，生成 height 行的文本图表
func NewGraph(e *model.HistElem, height int, fg, bg, noise rune, y model.YUnit) *Graph {
	rx, tx := e.Recent()
	return &Graph{
		Height: height,
		RX:     buildTable(rx, height, fg, bg, noise, y),
		TX:     buildTable(tx, height, fg, bg, noise, y),
	}
}

func buildTable(data []float64, height int, fg, bg, noise rune, y model.YUnit) Table {
	peak := 0.0
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	div, unit := model.Divisor(peak, y)
	h := float64(height)

	t := Table{
		Rows:  make([][]rune, height),
		Scale: make([]float64, height),
		Unit:  unit,
	}

	for r := 0; r < height; r++ {
		level := float64(height - r)
		t.Scale[r] = peak / h * level / div

		row := make([]rune, len(data))
		for col, v := range data {
			switch {
			// v >= peak/height*level，改写成乘法避免最大值因舍入落不到顶行
			case peak > 0 && v*h >= peak*level:
				row[col] = fg
			case level == 1 && v > 0:
				row[col] = noise
			default:
				row[col] = bg
			}
		}
		t.Rows[r] = row
	}
	return t
}

// Render 输出一张图：刻度列 + 图形 + 横轴
func (t Table) Render(w io.Writer, title, xlabel string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n", title, strings.TrimSpace(t.Unit))
	for r, row := range t.Rows {
		fmt.Fprintf(&b, "%8.2f |%s\n", t.Scale[r], string(row))
	}

	width := 0
	if len(t.Rows) > 0 {
		width = len(t.Rows[0])
	}
	fmt.Fprintf(&b, "%8s  %s %s\n", "", axis(width), xlabel)

	_, err := io.WriteString(w, b.String())
	return err
}

// axis 横轴刻度：1 以及每 5 列一个数字，数字右对齐到对应列
func axis(width int) string {
	line := []rune(strings.Repeat(" ", width))
	if width > 0 {
		line[0] = '1'
	}
	for k := 5; k <= width; k += 5 {
		s := strconv.Itoa(k)
		start := k - len(s)
		for n, c := range s {
			line[start+n] = c
		}
	}
	return string(line)
}

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputColors(t *testing.T) {
	var buf bytes.Buffer
	colored := &Output{writer: &buf, colorEnabled: true, currency: "$"}
	plain := &Output{writer: &buf, currency: "$"}

	assert.Contains(t, colored.Green("ok"), "\x1b[32m")
	assert.Equal(t, "ok", plain.Green("ok"))
	assert.Equal(t, "ok", stripANSI(colored.Green("ok")))
	assert.Equal(t, 7, displayWidth(colored.FormatPnL(-12)))
	assert.Equal(t, "-$12.00", plain.FormatPnL(-12))
}

func TestTableAlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf, colorEnabled: true}

	table := NewTable(out, "Date", "Score")
	table.AddRow("Mar 10", out.Green("80"))
	table.AddRow("Mar 9", out.Red("40"))
	table.Render()

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	assert.Len(t, lines, 4)
	assert.Equal(t, "Date    Score", stripANSI(string(lines[0])))
	assert.Equal(t, "Mar 9   40", stripANSI(string(lines[3])))
}

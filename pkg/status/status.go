// Package status shows the instrument state on a character display.
package status

import (
	"strings"
	"sync"
)

// Display is a character display.
// Writes are assumed to succeed; the LCD driver reports no errors either.
type Display interface {
	Clear()
	WriteAt(col, row uint8, text string)
}

// Panel renders whole rows on a Display, padding to the display width so
// stale characters are overwritten.
type Panel struct {
	display Display
	width   int
	rows    []string
}

// NewPanel creates a Panel for a width x height display.
func NewPanel(display Display, width, height uint8) *Panel {
	if display == nil {
		display = Nop{}
	}
	return &Panel{
		display: display,
		width:   int(width),
		rows:    make([]string, height),
	}
}

// Show writes text on row. Unchanged rows are not rewritten.
func (p *Panel) Show(row uint8, text string) {
	if int(row) >= len(p.rows) {
		return
	}
	text = fit(text, p.width)
	if p.rows[row] == text {
		return
	}
	p.rows[row] = text
	p.display.WriteAt(0, row, text)
}

// Reset clears the display.
func (p *Panel) Reset() {
	for i := range p.rows {
		p.rows[i] = ""
	}
	p.display.Clear()
}

func fit(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Clear() {}

func (Nop) WriteAt(uint8, uint8, string) {}

// Memory is an in-memory display used by the mock instrument and tests.
type Memory struct {
	mu    sync.RWMutex
	lines []string
}

// NewMemory creates a Memory display with height rows.
func NewMemory(height uint8) *Memory {
	return &Memory{lines: make([]string, height)}
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		m.lines[i] = ""
	}
}

func (m *Memory) WriteAt(col, row uint8, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(row) >= len(m.lines) {
		return
	}
	line := []byte(m.lines[row])
	for len(line) < int(col) {
		line = append(line, ' ')
	}
	end := int(col) + len(text)
	if end > len(line) {
		line = append(line[:col], text...)
	} else {
		copy(line[col:], text)
	}
	m.lines[row] = string(line)
}

// Line returns the text on row.
func (m *Memory) Line(row int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.lines) {
		return ""
	}
	return m.lines[row]
}

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "VERSION"},
		[][]string{{"draft-1", "7"}, {"draft-22"}},
		[]columnAlignment{alignLeft, alignRight},
	)

	lines := strings.Split(out, "\n")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "draft-22")

	var row string
	for _, line := range lines {
		if strings.Contains(line, "draft-1 ") {
			row = line
		}
	}
	if row == "" {
		t.Fatalf("expected a row for draft-1 in:\n%s", out)
	}
	assert.Contains(t, row, " 7 ")
	assert.NotContains(t, row, "│ 7 ", "version column should be right aligned")
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{5_242_880, "5.0 MiB"},
		{31_457_280, "30 MiB"},
		{-1, "-"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.in), tt.in)
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatTime(time.Time{}))

	thisYear := time.Date(time.Now().Year(), time.March, 4, 9, 5, 0, 0, time.Local)
	assert.Equal(t, "Mar  4 09:05", formatTime(thisYear))

	old := time.Date(2019, time.November, 20, 9, 5, 0, 0, time.Local)
	assert.Equal(t, "Nov 20  2019", formatTime(old))
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatDate(time.Time{}))
	assert.Equal(t, "2023-06-15 10:15:00", formatDate(time.Date(2023, time.June, 15, 10, 15, 0, 0, time.UTC)))
}

func TestPrintTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printTable(&buf, []string{"NAME", "SIZE"}, [][]string{
		{"IMG_0001.JPG", "5.0 MiB"},
		{"A.JPG", "1 B"},
	})

	want := "NAME          SIZE\n" +
		"IMG_0001.JPG  5.0 MiB\n" +
		"A.JPG         1 B\n"
	assert.Equal(t, want, buf.String())
}

func TestStatusf_Quiet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	statusf(&buf, true, "hidden %d\n", 1)
	assert.Empty(t, buf.String())

	statusf(&buf, false, "shown %d\n", 2)
	assert.Equal(t, "shown 2\n", buf.String())
}

package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	src := strings.Join([]string{
		"停止-0",
		"",
		"no separator here",
		"开始定位-1",
		"-7",
		"前进-abc",
		"后退--5",
		"向左转-300",
	}, "\n")

	table, err := Parse(strings.NewReader(src), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Phrase: "停止", Code: 0},
		{Phrase: "开始定位", Code: 1},
		{Phrase: "向左转", Code: 300},
	}, table.Entries())
	assert.Equal(t, 3, table.Len())
}

func TestParse_AllMalformedIsConfigError(t *testing.T) {
	_, err := Parse(strings.NewReader("garbage\nmore garbage\n"), quietLogger())
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestParse_EmptySourceIsConfigError(t *testing.T) {
	_, err := Parse(strings.NewReader(""), quietLogger())
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestLoadFile_Unreadable(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"), quietLogger())
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.txt")
	require.NoError(t, os.WriteFile(path, []byte("停止-0\n开始建图-3\n"), 0o600))

	table, err := LoadFile(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{name: "simple", line: "停止-0", want: Entry{Phrase: "停止", Code: 0}},
		{name: "surrounding space", line: "  前进 - 500 ", want: Entry{Phrase: "前进", Code: 500}},
		{name: "no separator", line: "停止", wantErr: true},
		{name: "empty phrase", line: "-3", wantErr: true},
		{name: "non numeric", line: "停止-x", wantErr: true},
		{name: "negative", line: "停止--1", wantErr: true},
		{name: "splits at first dash", line: "左-转-300", wantErr: true},
		{name: "trailing junk", line: "停止-1-2", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLine(tc.line)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFindCodeByPhrase_FirstMatchWins(t *testing.T) {
	// "停止定位" contains both phrases; the entry loaded first wins even
	// though the second one is longer and more specific.
	table := New(
		Entry{Phrase: "停止", Code: 0},
		Entry{Phrase: "停止定位", Code: 2},
	)

	code, ok := table.FindCodeByPhrase("停止定位")
	require.True(t, ok)
	assert.Equal(t, 0, code)

	reversed := New(
		Entry{Phrase: "停止定位", Code: 2},
		Entry{Phrase: "停止", Code: 0},
	)
	code, ok = reversed.FindCodeByPhrase("停止定位")
	require.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestFindCodeByPhrase_PositionDoesNotMatter(t *testing.T) {
	table := New(
		Entry{Phrase: "后退", Code: 600},
		Entry{Phrase: "前进", Code: 500},
	)

	code, ok := table.FindCodeByPhrase("前进然后后退")
	require.True(t, ok)
	assert.Equal(t, 600, code)
}

func TestFindCodeByPhrase_NoMatch(t *testing.T) {
	table := New(Entry{Phrase: "停止", Code: 0})
	_, ok := table.FindCodeByPhrase("你好")
	assert.False(t, ok)

	var empty *Table
	_, ok = empty.FindCodeByPhrase("停止")
	assert.False(t, ok)
}

func TestFindEntryByCode(t *testing.T) {
	table := New(
		Entry{Phrase: "停止定位", Code: 2},
		Entry{Phrase: "结束定位", Code: 2},
		Entry{Phrase: "前进", Code: 500},
	)

	e, ok := table.FindEntryByCode(2)
	require.True(t, ok)
	assert.Equal(t, "停止定位", e.Phrase)

	_, ok = table.FindEntryByCode(99)
	assert.False(t, ok)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	table := New(Entry{Phrase: "停止", Code: 0})
	entries := table.Entries()
	entries[0].Phrase = "changed"

	e, _ := table.FindEntryByCode(0)
	assert.Equal(t, "停止", e.Phrase)
}

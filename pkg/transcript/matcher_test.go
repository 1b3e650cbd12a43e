package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yongli3/voice-system/pkg/commands"
)

func testTable() *commands.Table {
	return commands.New(
		commands.Entry{Phrase: "停止", Code: 0},
		commands.Entry{Phrase: "开始定位", Code: 1},
		commands.Entry{Phrase: "停止定位", Code: 2},
		commands.Entry{Phrase: "向左转", Code: 300},
	)
}

func TestClassify(t *testing.T) {
	m := NewMatcher(testTable(), DefaultConfig())

	tests := []struct {
		name string
		raw  string
		want Result
	}{
		{
			name: "command",
			raw:  "机器人开始定位",
			want: Result{Kind: KindCommand, Code: 1, Phrase: "开始定位", Text: "开始定位"},
		},
		{
			name: "prefix in the middle",
			raw:  "你好机器人向左转吧",
			want: Result{Kind: KindCommand, Code: 300, Phrase: "向左转", Text: "你好向左转吧"},
		},
		{
			name: "first loaded entry wins",
			raw:  "机器人停止定位",
			want: Result{Kind: KindCommand, Code: 0, Phrase: "停止", Text: "停止定位"},
		},
		{
			name: "free form on topic",
			raw:  "机器人今天天气怎么样",
			want: Result{Kind: KindFreeForm, Text: "今天天气怎么样"},
		},
		{
			name: "off topic",
			raw:  "机器人唱首歌",
			want: Result{Kind: KindRepeat, Text: "唱首歌"},
		},
		{
			name: "unaddressed",
			raw:  "开始定位好吗",
			want: Result{Kind: KindUnaddressed},
		},
		{
			name: "too short",
			raw:  "停止",
			want: Result{Kind: KindTooShort},
		},
		{
			name: "empty",
			raw:  "",
			want: Result{Kind: KindTooShort},
		},
		{
			name: "too long",
			raw:  "机器人开始定位" + strings.Repeat("啊", 40),
			want: Result{Kind: KindTooLong},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Classify(tc.raw))
		})
	}
}

func TestClassify_LengthIsBytes(t *testing.T) {
	m := NewMatcher(testTable(), Config{WakePrefix: "机器人", MinLength: 7, MaxLength: 12})

	// 9 bytes, 3 runes.
	assert.Equal(t, KindRepeat, m.Classify("机器人").Kind)
	// 15 bytes, 5 runes.
	assert.Equal(t, KindTooLong, m.Classify("机器人停止").Kind)
	// 6 bytes.
	assert.Equal(t, KindTooShort, m.Classify("机器").Kind)
}

func TestClassify_LengthCheckedBeforeTable(t *testing.T) {
	// Every phrase of this table matches everything; only the length policy
	// can keep the classifier from reporting a command.
	table := commands.New(commands.Entry{Phrase: "", Code: 0})
	m := NewMatcher(table, DefaultConfig())

	assert.Equal(t, KindTooShort, m.Classify("机器").Kind)
	assert.Equal(t, KindTooLong, m.Classify("机器人"+strings.Repeat("x", 200)).Kind)
	assert.Equal(t, KindCommand, m.Classify("机器人x").Kind)
}

func TestClassify_UnaddressedNeverMatches(t *testing.T) {
	m := NewMatcher(testTable(), DefaultConfig())

	for _, raw := range []string{"请开始定位", "向左转向左转", "停止停止停止", "机器开始定位"} {
		got := m.Classify(raw)
		assert.Equal(t, KindUnaddressed, got.Kind, raw)
		assert.True(t, got.Kind.Rejected())
	}
}

func TestClassify_EmptyTable(t *testing.T) {
	m := NewMatcher(nil, DefaultConfig())

	got := m.Classify("机器人开始定位")
	assert.Equal(t, KindRepeat, got.Kind)
	assert.Equal(t, "开始定位", got.Text)
}

func TestStripFirst(t *testing.T) {
	tests := []struct {
		name   string
		s, sub string
		want   string
		found  bool
	}{
		{name: "leading", s: "机器人前进", sub: "机器人", want: "前进", found: true},
		{name: "only first", s: "机器人叫机器人过来", sub: "机器人", want: "叫机器人过来", found: true},
		{name: "keeps both sides", s: "ab机器人cd", sub: "机器人", want: "abcd", found: true},
		{name: "absent", s: "前进", sub: "机器人", want: "前进", found: false},
		{name: "empty sub", s: "前进", sub: "", want: "前进", found: false},
		{name: "whole string", s: "机器人", sub: "机器人", want: "", found: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, found := StripFirst(tc.s, tc.sub)
			require.Equal(t, tc.found, found)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAddress(t *testing.T) {
	m := NewMatcher(testTable(), DefaultConfig())

	got := m.Classify(m.Address("开始定位"))
	assert.Equal(t, KindCommand, got.Kind)
	assert.Equal(t, 1, got.Code)
}

package service_test

import (
	"testing"

	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "простой ключ", raw: "abc", want: "abc", ok: true},
		{name: "слэши по краям", raw: "//abc/", want: "abc", ok: true},
		{name: "вложенный путь", raw: "/docs/intro/", want: "docs/intro", ok: true},
		{name: "дефис и цифры", raw: "go-2024", want: "go-2024", ok: true},
		{name: "кириллица", raw: "привет", want: "привет", ok: true},
		{name: "иероглифы", raw: "/链接/", want: "链接", ok: true},
		{name: "пустой", raw: "", ok: false},
		{name: "только слэши", raw: "///", ok: false},
		{name: "пробел", raw: "a b", ok: false},
		{name: "подчёркивание", raw: "a_b", ok: false},
		{name: "точка", raw: "a.b", ok: false},
		{name: "вопросительный знак", raw: "abc?x=1", ok: false},
		{name: "процент", raw: "a%20b", ok: false},
		{name: "невалидный utf-8", raw: "ab\xff", ok: false},
		{name: "управляющий символ C1", raw: "ab\u0085", ok: false},
		{name: "неразрывный пробел", raw: "a\u00a0b", ok: false},
		{name: "символ замены как есть", raw: "a\ufffdb", want: "a\ufffdb", ok: true},
		{name: "эмодзи", raw: "go-🚀", want: "go-🚀", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := service.NormalizeKey(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	for _, raw := range []string{"abc", "/a/b/", "ключ-1", "//x//y//"} {
		once, ok := service.NormalizeKey(raw)
		assert.True(t, ok, raw)

		twice, ok := service.NormalizeKey(once)
		assert.True(t, ok, raw)
		assert.Equal(t, once, twice)
	}
}

package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeKey приводит ключ к каноничному виду: срезает ведущие и
// завершающие '/'. Допустимы ASCII буквы и цифры, '/', '-' и любые символы
// за пределами ASCII, кроме управляющих и пробельных. Возвращает false, если
// ключ не валидный UTF-8, содержит недопустимые символы или пуст после нормализации.
func NormalizeKey(raw string) (string, bool) {
	if !utf8.ValidString(raw) {
		return "", false
	}
	for _, r := range raw {
		if !keyRuneAllowed(r) {
			return "", false
		}
	}

	key := strings.Trim(raw, "/")
	if key == "" {
		return "", false
	}
	return key, true
}

func keyRuneAllowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '/', r == '-':
		return true
	case r > unicode.MaxASCII:
		// кириллица, иероглифы и т.д.; C1 и NBSP не печатаемые
		return unicode.IsPrint(r)
	}
	return false
}

// reservedKeys набор ключей, всегда считающихся занятыми
type reservedKeys map[string]struct{}

func newReservedKeys(keys []string) reservedKeys {
	set := make(reservedKeys, len(keys))
	for _, k := range keys {
		if normalized, ok := NormalizeKey(k); ok {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// has проверяет первый сегмент ключа: "link/abc" занят так же, как "link",
// иначе путь перехватят маршруты API.
func (s reservedKeys) has(key string) bool {
	first, _, _ := strings.Cut(key, "/")
	_, ok := s[first]
	return ok
}

// Package validation содержит разбор пользовательского ввода.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount возвращается, если в начале значения нет целого числа.
var ErrInvalidAmount = errors.New("amount is not an integer")

// ParseAmount разбирает сумму из поля формы так же снисходительно, как поле ввода
// мини-приложения: пробелы в начале пропускаются, затем читаются необязательный
// знак и цифры до первого постороннего символа ("150.7" даёт 150, "12abc" даёт 12).
func ParseAmount(s string) (int64, error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, ErrInvalidAmount
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return n, nil
}

// ParseJSONAmount принимает сумму, переданную в JSON числом или строкой.
func ParseJSONAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrInvalidAmount
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, ErrInvalidAmount
		}
		return ParseAmount(s)
	}

	return ParseAmount(string(raw))
}

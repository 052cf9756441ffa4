package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/planmate/internal/database"
)

// rebind は"?"プレースホルダで書かれたクエリを方言に合わせて書き換える。
// PostgreSQLでは$1, $2, ...に置換し、SQLiteではそのまま返す。
func rebind(dialect database.Dialect, query string) string {
	if dialect != database.DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeLayouts はSQLiteのDATETIME列から読み出した文字列の解釈に使うレイアウト。
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// scanTime はドライバが返した時刻値をtime.Timeに変換する。
// PostgreSQLはtime.Timeを返し、SQLiteは宣言型によって文字列を返すことがある。
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time value %q", s)
}

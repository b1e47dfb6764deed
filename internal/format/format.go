// Package format 把生成结果序列化为可下载的文件
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/model"

	"github.com/spf13/cast"
)

type Format string

const (
	CSV   Format = "csv"
	JSON  Format = "json"
	Excel Format = "excel"
)

const (
	ContentTypeCSV   = "text/csv; charset=utf-8"
	ContentTypeJSON  = "application/json"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	slugMaxChars    = 30
	defaultFileName = "data"
)

// File 序列化后的下载文件
type File struct {
	Body        []byte
	ContentType string
	FileName    string
}

// ParseFormat 大小写不敏感，xlsx 视为 excel
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, true
	case "json":
		return JSON, true
	case "excel", "xlsx":
		return Excel, true
	default:
		return "", false
	}
}

// Render 按格式序列化 rows，文件名由 nameHint 派生。
// excel 复用 CSV 编码，只改内容类型和扩展名
func Render(rows []*model.Row, format string, nameHint string) (*File, error) {
	rows = compact(rows)
	if len(rows) == 0 {
		return nil, apperr.Validation("No data to download", "the data array is empty")
	}
	f, ok := ParseFormat(format)
	if !ok {
		return nil, apperr.Validation("Unsupported format", fmt.Sprintf("format %q is not one of csv, json, excel", format))
	}

	slug := Slug(nameHint)
	switch f {
	case JSON:
		body, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return &File{Body: body, ContentType: ContentTypeJSON, FileName: slug + ".json"}, nil
	case Excel:
		return &File{Body: encodeCSV(rows), ContentType: ContentTypeExcel, FileName: slug + ".xlsx"}, nil
	default:
		return &File{Body: encodeCSV(rows), ContentType: ContentTypeCSV, FileName: slug + ".csv"}, nil
	}
}

// compact 去掉请求体里的 null 行
func compact(rows []*model.Row) []*model.Row {
	out := rows[:0:0]
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// encodeCSV 表头取第一行的字段顺序；每个值都加引号，null 输出为 ""
func encodeCSV(rows []*model.Row) []byte {
	header := rows[0].Keys()
	var buf bytes.Buffer

	writeLine := func(values []string) {
		for i, v := range values {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(v, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}

	writeLine(header)
	values := make([]string, len(header))
	for _, row := range rows {
		for i, key := range header {
			v, _ := row.Get(key)
			values[i] = cast.ToString(v)
		}
		writeLine(values)
	}
	return buf.Bytes()
}

// Slug 取提示词前 30 个字符，非字母数字替换为 -，转小写
func Slug(prompt string) string {
	runes := []rune(strings.TrimSpace(prompt))
	if len(runes) > slugMaxChars {
		runes = runes[:slugMaxChars]
	}
	for i, r := range runes {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			runes[i] = '-'
			continue
		}
		runes[i] = unicode.ToLower(r)
	}
	if len(runes) == 0 {
		return defaultFileName
	}
	return string(runes)
}

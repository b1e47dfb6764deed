package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Row 一条生成记录：字段名到标量值的映射，保留字段插入顺序
type Row struct {
	keys   []string
	values map[string]interface{}
}

// FieldSet 同一结果中所有行共享的有序字段列表
type FieldSet []string

func NewRow() *Row {
	return &Row{values: make(map[string]interface{})}
}

// RowFromPairs 按 key, value, key, value... 顺序构造一行，测试和数据源适配器使用
func RowFromPairs(pairs ...interface{}) *Row {
	r := NewRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

func (r *Row) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *Row) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys 返回字段名副本，顺序为插入顺序
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Row) Len() int {
	return len(r.keys)
}

// Conform 按 fields 重排：缺失字段补 null，多余字段丢弃
func (r *Row) Conform(fields FieldSet) *Row {
	out := &Row{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]interface{}, len(fields)),
	}
	for _, f := range fields {
		v, ok := r.values[f]
		if !ok {
			v = nil
		}
		out.Set(f, v)
	}
	return out
}

// HasFields 行的字段集合与 fields 完全一致（忽略顺序）
func (r *Row) HasFields(fields FieldSet) bool {
	if len(r.keys) != len(fields) {
		return false
	}
	for _, f := range fields {
		if _, ok := r.values[f]; !ok {
			return false
		}
	}
	return true
}

func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 逐 token 解析对象以保留键顺序；数字保持为 json.Number
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, flatten(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// flatten 行只承载标量，嵌套对象或数组序列化为 JSON 文本
func flatten(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return v
	}
}

// ParseRow 解析模型输出的一行 JSON 字符串；失败时退化为 {value: 原始文本}
func ParseRow(raw string) (*Row, bool) {
	row := NewRow()
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), row); err != nil || row.Len() == 0 {
		return RowFromPairs("value", raw), false
	}
	return row, true
}

// GenerationResult 一次生成的结果，只在请求生命周期内存在
type GenerationResult struct {
	Data   []*Row   `json:"data"`
	Fields FieldSet `json:"fields"`
	Source string   `json:"source"`
}

// FieldsOf 取第一行的字段作为 FieldSet
func FieldsOf(rows []*Row) FieldSet {
	if len(rows) == 0 {
		return FieldSet{}
	}
	return FieldSet(rows[0].Keys())
}

// ConformAll 用 fields 对齐所有行
func ConformAll(rows []*Row, fields FieldSet) []*Row {
	out := make([]*Row, len(rows))
	for i, r := range rows {
		out[i] = r.Conform(fields)
	}
	return out
}

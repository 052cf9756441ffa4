// Package reconcile はタスクの検証とスケジュールへの書き込みを提供する。
// アシスタント提案の一括承認と、ユーザーの手入力の2つの書き込み経路を持ち、
// どちらも同じ検証を通ったタスクだけをスケジュールに追記する。
package reconcile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/planmate/internal/model"
)

//go:embed task.schema.json
var taskSchemaJSON []byte

// defaultPrinter はスキーマ検証エラーのメッセージ整形に使う。
var defaultPrinter = message.NewPrinter(language.English)

// taskSchema はタスクレコードのコンパイル済みJSON Schema。
var taskSchema = mustCompileSchema(taskSchemaJSON, "task.schema.json")

func mustCompileSchema(raw []byte, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// clockLayouts は受け付ける時刻表記。12時間表記は24時間表記に変換して保存する。
var clockLayouts = []string{
	model.ClockLayout,
	"3:04 PM",
	"3:04PM",
}

// Validator はタスクレコードを検証し、正規化したタスクを返す。
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator はValidatorを生成する。
func NewValidator() *Validator {
	return &Validator{schema: taskSchema}
}

// ValidateRecord はJSONのタスクレコード1件を検証する。
// 型の誤りや必須項目の欠落はスキーマで検出し、その後Validateと同じ検証を行う。
func (v *Validator) ValidateRecord(raw json.RawMessage) (model.Task, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return model.Task{}, &model.ValidationError{Index: -1, Reason: "JSONとして解釈できません"}
	}
	if err := v.checkSchema(inst); err != nil {
		return model.Task{}, err
	}

	var task model.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return model.Task{}, &model.ValidationError{Index: -1, Reason: err.Error()}
	}
	return v.Validate(task)
}

// Validate はタスクを検証し、時刻を24時間表記のHH:MMに正規化したタスクを返す。
// 不正な場合は*model.ValidationErrorを返す。
func (v *Validator) Validate(task model.Task) (model.Task, error) {
	task.Date = strings.TrimSpace(task.Date)
	task.StartTime = strings.TrimSpace(task.StartTime)
	task.EndTime = strings.TrimSpace(task.EndTime)
	task.Name = strings.TrimSpace(task.Name)

	doc := map[string]any{
		"date":       task.Date,
		"start_time": task.StartTime,
		"end_time":   task.EndTime,
		"task":       task.Name,
		"source":     string(task.Source),
	}
	if err := v.checkSchema(doc); err != nil {
		return model.Task{}, err
	}

	if _, err := time.Parse(model.DateLayout, task.Date); err != nil {
		return model.Task{}, invalid("date", "存在しない日付です")
	}

	start, ok := normalizeClock(task.StartTime)
	if !ok {
		return model.Task{}, invalid("start_time", "時刻はHH:MM形式で指定してください")
	}
	end, ok := normalizeClock(task.EndTime)
	if !ok {
		return model.Task{}, invalid("end_time", "時刻はHH:MM形式で指定してください")
	}
	if start >= end {
		return model.Task{}, invalid("end_time", "終了時刻は開始時刻より後にしてください")
	}

	task.StartTime = start
	task.EndTime = end
	return task, nil
}

// checkSchema はインスタンスをスキーマで検証し、最初の違反をValidationErrorにする。
func (v *Validator) checkSchema(inst any) error {
	err := v.schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &model.ValidationError{Index: -1, Reason: err.Error()}
	}
	return firstCause(ve)
}

// firstCause は検証エラーの木を辿り、最初の末端の原因を返す。
func firstCause(ve *jsonschema.ValidationError) *model.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	field := ""
	if len(ve.InstanceLocation) > 0 {
		field = ve.InstanceLocation[0]
	}
	if req, ok := ve.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		return invalid(req.Missing[0], "必須項目です")
	}
	return invalid(field, ve.ErrorKind.LocalizedString(defaultPrinter))
}

func invalid(field, reason string) *model.ValidationError {
	return &model.ValidationError{Index: -1, Field: field, Reason: reason}
}

// normalizeClock は時刻表記をゼロ埋めの24時間表記HH:MMに変換する。
func normalizeClock(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.ClockLayout), true
		}
	}
	return "", false
}

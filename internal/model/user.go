package model

import (
	"fmt"
	"strings"
)

// MaxUserIDBytes はユーザーIDの最大バイト長。ディレクトリ名やVARCHAR(255)に収まる長さに抑える。
const MaxUserIDBytes = 64

// reservedUserIDs は固定ルートと衝突するため利用者名として使えない値。
var reservedUserIDs = map[string]struct{}{
	"entry":   {},
	"health":  {},
	"metrics": {},
}

// NormalizeUserID は利用者名を正規化したユーザーIDを返す。
// 前後の空白を除去し、小文字に変換する。ストレージの分割キーとして使われるため、
// パス区切り文字を含むもの、"."と".."、長すぎる名前、予約済みの名前はエラーとする。
func NormalizeUserID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", NewInvalidUserError(raw, "空の名前は使用できません")
	}
	if len(id) > MaxUserIDBytes {
		return "", NewInvalidUserError(id[:MaxUserIDBytes]+"...", fmt.Sprintf("名前は%dバイト以内にしてください", MaxUserIDBytes))
	}
	if id == "." || id == ".." {
		return "", NewInvalidUserError(raw, "使用できない名前です")
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return "", NewInvalidUserError(raw, "パス区切り文字は使用できません")
	}
	if _, ok := reservedUserIDs[id]; ok {
		return "", NewInvalidUserError(raw, "予約済みの名前です")
	}
	return id, nil
}

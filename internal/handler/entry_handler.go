package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/planmate/internal/model"
)

// landingResponse は入口ページの説明。
type landingResponse struct {
	Service     string `json:"service"`
	Description string `json:"description"`
	EntryPath   string `json:"entry_path"`
	Field       string `json:"field"`
}

// Landing は入口フォームの説明を返す。
// GET /
func Landing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(landingResponse{
		Service:     "planmate",
		Description: "名前を送信すると、その名前の利用者ページに移動します。",
		EntryPath:   "/entry",
		Field:       "name",
	})
}

// Entry は入力された名前の利用者ページへリダイレクトする。
// 名前が空または不正な場合は入口へ戻す。
// POST /entry
func Entry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	userID, err := model.NormalizeUserID(r.PostForm.Get("name"))
	if err != nil {
		slog.Info("entry rejected", slog.String("error", err.Error()))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/"+url.PathEscape(userID), http.StatusSeeOther)
}

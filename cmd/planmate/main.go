// Command planmate は会話型スケジュールアシスタントのサーバーを起動する。
//
// サブコマンド:
//
//	serve        HTTPサーバーを起動する（既定）
//	migrate      データベースマイグレーションを適用する
//	healthcheck  /health を呼び出して終了コードで結果を返す
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/planmate/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

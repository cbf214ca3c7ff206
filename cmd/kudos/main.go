// Command kudos は社内の賞賛アプリのAPIサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	kudos [serve|worker|migrate|cleanup|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/kudos/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

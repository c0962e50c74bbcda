// Command feedboost はフィードの投稿を複数アカウントでリポスト・いいねするバッチ/ワーカー。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/feedboost/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command fechamento は月次締めAPIサーバーとその運用サブコマンドのエントリーポイント。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/fechamento/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	// .envは存在しなくてもよい
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fechamento: %v\n", err)
		os.Exit(1)
	}
}

// Command hrportal は勤怠管理APIサーバーを起動する。
//
// 使い方:
//
//	hrportal [serve|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/hrportal/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hrportal: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/DieselDot/Trademind/internal/cli"
	"github.com/DieselDot/Trademind/internal/logging"
)

func main() {
	app := cli.NewApp(logging.NewLogger())
	app.ConfigureLogging = true

	if err := cli.NewRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

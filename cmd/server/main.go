package main

import (
	"fmt"
	"os"

	"authguard/internal/app"
)

// @title           authguard API
// @version         1.0
// @description     Token issuing, role guard and email verification.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

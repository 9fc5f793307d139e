package main

import (
	"os"
)

// @title           Kestrel API
// @version         1.0
// @description     Video game catalog with personal libraries, now-playing lists and comments.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

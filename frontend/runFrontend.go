package frontend

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/skmehra/ecotrace/frontend/client"
	"github.com/skmehra/ecotrace/frontend/cmd"
)

// RunFrontend starts the interactive ops shell against a running backend.
func RunFrontend() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	serverURL := os.Getenv("SERVER_URL")

	client.InitClient(serverURL, signingKey)
	cmd.InitOpsCmd()
	cmd.Execute()
}

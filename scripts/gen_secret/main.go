// Generates a random API_SECRET for the agent.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("API_SECRET=" + hex.EncodeToString(buf))
	fmt.Println("Put this in the agent's .env and share it with clients over a secure channel only.")
}

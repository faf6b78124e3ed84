// Signs a request body for the agent's HMAC authentication, printing the
// X-Timestamp and X-Signature headers to attach.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: go run ./scripts/sign_request <secret> <method> <path> <body>")
		fmt.Println(`Example: go run ./scripts/sign_request mysecret POST /query '{"sql":"SELECT 1"}'`)
		return
	}

	secret, method, path, body := os.Args[1], os.Args[2], os.Args[3], os.Args[4]
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))

	fmt.Printf("X-Timestamp: %s\n", timestamp)
	fmt.Printf("X-Signature: %s\n", hex.EncodeToString(mac.Sum(nil)))
}

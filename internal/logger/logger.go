package logger

import (
	"log"
	"time"
)

// Debug logs a debug message with consistent format
// Format: [DEBUG] timestamp=... addr=... action=... details=...
func Debug(addr, action, details string) {
	timestamp := time.Now().Format(time.RFC3339)
	if addr == "" {
		addr = "-"
	}
	log.Printf("[DEBUG] timestamp=%s addr=%s action=%s details=%s", timestamp, addr, action, details)
}

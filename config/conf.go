package config

import (
	"context"
	"log"

	"github.com/fatih/color"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Pink   = color.New(color.FgMagenta).SprintFunc()

	Ctx = context.Background()

	// Verbose enables Debugf output
	Verbose bool

	SeverityMap = map[string]int{
		"critical": 5,
		"high":     4,
		"medium":   3,
		"low":      2,
		"info":     1,
	}
)

func Debugf(format string, v ...interface{}) {
	if !Verbose {
		return
	}
	log.Printf("[DEBUG] "+format, v...)
}

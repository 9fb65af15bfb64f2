package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { log.SetLevel(log.InfoLevel) })

	setupLogger()
	if log.GetLevel() != log.InfoLevel {
		t.Errorf("expected info level by default, got %s", log.GetLevel())
	}

	t.Setenv("BILLING_LOG_LEVEL", "debug")
	setupLogger()
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
}

package app_integration_tests

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Black-And-White-Club/spinboard/integration_tests/testutils"
)

var testEnv *testutils.TestEnvironment

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping container-backed tests in short mode")
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	env, err := testutils.NewTestEnvironment(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to set up test environment: %v", err)
	}
	testEnv = env

	code := m.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	testEnv.Terminate(shutdownCtx)
	cancel()
	os.Exit(code)
}

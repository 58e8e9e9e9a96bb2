package cmd

import (
	"context"
	"fmt"
	"strings"
)

// APIKeyEnv names the environment variable the CLI reads provider keys from.
const APIKeyEnv = "GOCODE_GRADER_API_KEY"

const usage = `gocode-grader grades code submissions with a configurable LLM provider.

Usage:
  gocode-grader <command> [flags]

Commands:
  serve         Start the HTTP server
  grade         Grade a single submission and print the feedback
  test          Check that a provider accepts the configured credentials
  validate-key  Check the format of an API key without any network call
  providers     List the registered providers

Provider keys are read from $GOCODE_GRADER_API_KEY; a .env file is honoured.

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "grade":
		return grade(ctx, args[1:])
	case "test":
		return testConnection(ctx, args[1:])
	case "validate-key":
		return validateKey(args[1:])
	case "providers":
		return listProviders(args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

const gradeUsage = `Usage:
  gocode-grader grade --provider <key> --section <title> --challenge <text> --code-file <path> [flags]

Flags:
  --config          string  Path to YAML configuration file
  --provider        string  Provider key (required)
  --section         string  Section title
  --challenge       string  Challenge description
  --code-file       string  File with the submission, "-" for stdin
  --version         string  Model id overriding the provider default
  --custom-model    string  Model id for the "other" provider
  --custom-endpoint string  Endpoint for the "other" provider
  --custom-headers  string  JSON object of headers for the "other" provider
  --stream                  Stream feedback as it is generated (ollama only)`

const testUsage = `Usage:
  gocode-grader test --provider <key> [--config <path>] [--version <model>] [--custom-model <id>] [--custom-endpoint <url>] [--custom-headers <json>]`

const validateKeyUsage = `Usage:
  gocode-grader validate-key --provider <key>`

const providersUsage = `Usage:
  gocode-grader providers [--config <path>]`

func grade(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grade", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, gradeUsage)
	}

	var pf providerFlags
	var section, challenge, codeFile string
	var stream bool
	pf.register(fs)
	fs.StringVar(&section, "section", "", "section title")
	fs.StringVar(&challenge, "challenge", "", "challenge description")
	fs.StringVar(&codeFile, "code-file", "", "file with the submission")
	fs.BoolVar(&stream, "stream", false, "stream feedback as it is generated")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse grade flags: %w", err)
	}
	if pf.provider == "" {
		return errors.New("grade command requires --provider <key>")
	}
	if codeFile == "" {
		return errors.New("grade command requires --code-file <path>")
	}

	code, err := readCode(codeFile)
	if err != nil {
		return err
	}

	d, err := cliDeps(pf.configPath)
	if err != nil {
		return err
	}

	req := models.GradeRequest{
		Provider:             pf.provider,
		APIKey:               os.Getenv(APIKeyEnv),
		ChallengeDescription: challenge,
		SectionTitle:         section,
		Code:                 code,
		Version:              pf.version,
		CustomModel:          pf.customModel,
		CustomEndpoint:       pf.customEndpoint,
		CustomHeaders:        pf.customHeaders,
	}

	if stream {
		_, err := d.grader.StreamGrading(ctx, req, func(text string) error {
			_, err := fmt.Print(text)
			return err
		})
		fmt.Println()
		return err
	}

	feedback, err := d.grader.SubmitCodeForGrading(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(feedback)
	return nil
}

func testConnection(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, testUsage)
	}

	var pf providerFlags
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse test flags: %w", err)
	}
	if pf.provider == "" {
		return errors.New("test command requires --provider <key>")
	}

	d, err := cliDeps(pf.configPath)
	if err != nil {
		return err
	}

	if _, err := d.grader.TestAPIConnection(ctx, models.ConnectionRequest{
		Provider:       pf.provider,
		APIKey:         os.Getenv(APIKeyEnv),
		Version:        pf.version,
		CustomModel:    pf.customModel,
		CustomEndpoint: pf.customEndpoint,
		CustomHeaders:  pf.customHeaders,
	}); err != nil {
		return fmt.Errorf("connection to %s failed: %w", pf.provider, err)
	}
	fmt.Printf("connection to %s ok\n", pf.provider)
	return nil
}

func validateKey(args []string) error {
	fs := flag.NewFlagSet("validate-key", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, validateKeyUsage)
	}

	var key string
	fs.StringVar(&key, "provider", "", "provider key")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse validate-key flags: %w", err)
	}
	if key == "" {
		return errors.New("validate-key command requires --provider <key>")
	}

	if !provider.ValidateAPIKey(key, os.Getenv(APIKeyEnv)) {
		return fmt.Errorf("$%s does not look like a valid %s key", APIKeyEnv, key)
	}
	fmt.Printf("key format ok for %s\n", key)
	return nil
}

func listProviders(args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, providersUsage)
	}

	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse providers flags: %w", err)
	}

	cfg, err := loadClientConfig(cfgPath)
	if err != nil {
		return err
	}
	registry, err := provider.NewRegistry(cfg.Endpoints)
	if err != nil {
		return err
	}

	descriptors := registry.Descriptors()
	sort.SliceStable(descriptors, func(i, j int) bool { return descriptors[i].Family < descriptors[j].Family })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tFAMILY\tDEFAULT MODEL\tENDPOINT")
	for _, d := range descriptors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Key, d.Family, d.DefaultModel, d.Endpoint)
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", provider.CustomKey, models.FamilyCustom, "(custom)", "(custom)")
	return tw.Flush()
}

func readCode(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read submission from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read submission %q: %w", path, err)
	}
	return string(data), nil
}

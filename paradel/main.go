package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"paradel/internal/cli/client"
	"paradel/internal/cli/config"
	"paradel/internal/cli/output"
)

var stdin io.Reader = os.Stdin

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "connect":
		return cmdConnect(args[1:])
	case "disconnect":
		return cmdDisconnect()
	case "status":
		return cmdStatus()
	case "types":
		return cmdTypes(args[1:])
	case "usages":
		return cmdUsages(args[1:])
	case "delete":
		return cmdDelete(args[1:])
	case "cache":
		return cmdCache(args[1:])
	case "webhooks":
		return cmdWebhooks(args[1:])
	default:
		return usage()
	}
}

func cmdConnect(args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	apiKey := fs.String("api-key", "", "API key")
	inDir := fs.Bool("in-dir", false, "Write config to ./.paradel/config.json in current directory")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return errors.New("usage: paradel connect <url> --api-key <key> [--in-dir]")
	}
	rawURL := strings.TrimSpace(positionals[0])
	if strings.TrimSpace(*apiKey) == "" {
		return errors.New("missing --api-key")
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	cl := client.New(rawURL, *apiKey)
	var status map[string]any
	if err := cl.Get("/api/v1/status", &status); err != nil {
		return fmt.Errorf("validate server: %w", err)
	}
	var whoami struct {
		Name string `json:"name"`
	}
	if err := cl.Get("/api/v1/whoami", &whoami); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	cfgPath, err := config.Path()
	if *inDir {
		cfgPath, err = config.LocalPath()
	}
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return err
	}
	cfg.SetDefault(rawURL, *apiKey, whoami.Name)
	if err := config.SaveTo(cfg, cfgPath); err != nil {
		return err
	}
	fmt.Printf("connected to %s as %s\n", rawURL, whoami.Name)
	return nil
}

func cmdDisconnect() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Default(); !ok {
		fmt.Println("no active connection")
		return nil
	}
	cfg.ClearDefault()
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println("disconnected")
	return nil
}

func cmdStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	srv, ok := cfg.Default()
	if !ok {
		return errNotConnected
	}
	cl := client.New(srv.URL, srv.APIKey)
	var status map[string]any
	if err := cl.Get("/api/v1/status", &status); err != nil {
		return err
	}
	return output.Print(map[string]any{
		"server":       srv.URL,
		"account":      srv.Account,
		"connected_at": srv.ConnectedAt,
		"status":       status,
	}, "json", false)
}

func cmdTypes(args []string) error {
	fs := flag.NewFlagSet("types", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: table|plain|json")
	quiet := fs.Bool("quiet", false, "Print ids only")
	if _, err := parseInterspersedFlags(fs, args); err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/api/v1/paragraphs-types", &resp); err != nil {
		return err
	}
	return output.Print(resp, *format, *quiet)
}

func cmdUsages(args []string) error {
	fs := flag.NewFlagSet("usages", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: table|plain|json")
	quiet := fs.Bool("quiet", false, "Print parent urls only")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return errors.New("usage: paradel usages <type> [--format f] [--quiet]")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/api/v1/paragraphs-types/"+url.PathEscape(positionals[0])+"/usages", &resp); err != nil {
		return err
	}
	return output.Print(resp, *format, *quiet)
}

func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	format := fs.String("format", "", "Output format: table|plain|json")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return errors.New("usage: paradel delete <type> [--yes]")
	}
	typeID := url.PathEscape(positionals[0])
	cl, err := defaultClient()
	if err != nil {
		return err
	}

	if !*yes {
		var usages struct {
			Count int `json:"count"`
		}
		if err := cl.Get("/api/v1/paragraphs-types/"+typeID+"/usages", &usages); err != nil {
			return err
		}
		fmt.Printf("There are %d items whose %s paragraphs will be deleted. Continue? [y/N] ", usages.Count, positionals[0])
		answer, _ := bufio.NewReader(stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	var report map[string]any
	if err := cl.Post("/api/v1/paragraphs-types/"+typeID+"/bulk-delete", nil, &report); err != nil {
		return err
	}
	return output.Print(report, *format, false)
}

func cmdCache(args []string) error {
	if len(args) == 0 || (args[0] != "flush" && args[0] != "invalidate") {
		return errors.New("usage: paradel cache flush | paradel cache invalidate <tag>...")
	}
	if args[0] == "invalidate" && len(args) < 2 {
		return errors.New("usage: paradel cache invalidate <tag>...")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if args[0] == "flush" {
		err = cl.Post("/api/v1/admin/cache/flush", nil, &resp)
	} else {
		err = cl.Post("/api/v1/admin/cache/invalidate", map[string]any{"tags": args[1:]}, &resp)
	}
	if err != nil {
		return err
	}
	return output.Print(resp, "plain", false)
}

func cmdWebhooks(args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
		var resp map[string]any
		if err := cl.Get("/api/v1/admin/webhooks", &resp); err != nil {
			return err
		}
		return output.Print(resp, "", false)
	case "add":
		fs := flag.NewFlagSet("webhooks add", flag.ContinueOnError)
		events := fs.String("events", "*", "Comma separated event names")
		secret := fs.String("secret", "", "HMAC secret")
		positionals, err := parseInterspersedFlags(fs, args[1:])
		if err != nil {
			return err
		}
		if len(positionals) != 1 {
			return errors.New("usage: paradel webhooks add <url> [--events a,b] [--secret s]")
		}
		var resp map[string]any
		if err := cl.Post("/api/v1/admin/webhooks", map[string]any{
			"url":    positionals[0],
			"events": strings.Split(*events, ","),
			"secret": *secret,
		}, &resp); err != nil {
			return err
		}
		return output.Print(resp, "", true)
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: paradel webhooks remove <id>")
		}
		if err := cl.Delete("/api/v1/admin/webhooks/" + url.PathEscape(args[1])); err != nil {
			return err
		}
		fmt.Println("removed")
		return nil
	default:
		return errors.New("usage: paradel webhooks list|add|remove")
	}
}

var errNotConnected = errors.New("not connected. run: paradel connect <url> --api-key <key>")

func defaultClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	srv, ok := cfg.Default()
	if !ok {
		return nil, errNotConnected
	}
	return client.New(srv.URL, srv.APIKey), nil
}

func parseInterspersedFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		if arg == "" {
			continue
		}
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}

		trimmed := strings.TrimLeft(arg, "-")
		name := trimmed
		value := ""
		hasValue := false
		if idx := strings.Index(trimmed, "="); idx >= 0 {
			name = trimmed[:idx]
			value = trimmed[idx+1:]
			hasValue = true
		}

		f := fs.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("flag provided but not defined: -%s", name)
		}
		isBool := false
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			isBool = true
		}

		if !hasValue {
			if isBool {
				value = "true"
			} else {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("flag needs an argument: -%s", name)
				}
				i++
				value = args[i]
			}
		}

		if err := fs.Set(name, value); err != nil {
			return nil, err
		}
	}
	return positionals, nil
}

func usage() error {
	return errors.New(`usage:
  paradel connect <url> --api-key <key> [--in-dir]
  paradel disconnect
  paradel status
  paradel types [--format f] [--quiet]
  paradel usages <type> [--format f] [--quiet]
  paradel delete <type> [--yes] [--format f]
  paradel cache flush
  paradel cache invalidate <tag>...
  paradel webhooks list
  paradel webhooks add <url> [--events a,b] [--secret s]
  paradel webhooks remove <id>`)
}

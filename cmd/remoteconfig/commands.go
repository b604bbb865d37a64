package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vanvught/rpidmx512-sub012/internal/client"
	"github.com/vanvught/rpidmx512-sub012/internal/discovery"
	"github.com/vanvught/rpidmx512-sub012/internal/ui"
)

// Node selection and output flags
var (
	nodeHost     string
	nodePort     int
	scanTimeout  int
	outputFormat string
	assumeYes    bool
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeHost, "node", "", "Node address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&nodePort, "port", 80, "Node HTTP port")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(actionCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteShowCmd)
	rootCmd.AddCommand(rebootCmd)

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	for _, cmd := range []*cobra.Command{actionCmd, deleteShowCmd, rebootCmd} {
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	}
}

// scanCmd discovers nodes on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nodes on the network",
	Long: `Scan for remote configuration nodes using mDNS/DNS-SD discovery.

Only services advertising the "remoteconfig=1" TXT record are listed.`,
	Example: `  # Scan for 5 seconds (default)
  remoteconfig scan

  # Longer scan for busy networks
  remoteconfig scan --timeout 15`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(scanTimeout) * time.Second
	fmt.Printf("Scanning for nodes (timeout: %v)...\n\n", timeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = timeout
	nodes, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(nodes)
	}

	if len(nodes) == 0 {
		fmt.Println(ui.NewWarningResult("No nodes found",
			ui.Param{Key: "Timeout", Value: timeout.String()},
		).AddDetail("Hint", "try --timeout or --node <address>"))
		return nil
	}

	tbl := ui.NewTable("Instance", "Address", "Board", "Version")
	for _, n := range nodes {
		tbl.AddRow(n.Instance, n.Address(), n.GetMetadata("board"), n.GetMetadata("version"))
	}
	fmt.Println(tbl)
	fmt.Println("\nUse 'remoteconfig info --node <address>' to query a node")
	return nil
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show node version and configuration files",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, addr, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		v, err := c.Version(cmd.Context())
		if err != nil {
			return err
		}
		files, err := c.Directory(cmd.Context())
		if err != nil && client.StatusCode(err) != 404 {
			return err
		}

		if outputFormat == "json" {
			return printJSON(map[string]any{"version": v, "files": files})
		}

		fmt.Println(ui.NewSuccessResult(v.Board,
			ui.Param{Key: "Node", Value: addr},
			ui.Param{Key: "Version", Value: v.Version},
			ui.Param{Key: "Commit", Value: v.Commit},
			ui.Param{Key: "Files", Value: strings.Join(files, ", ")},
		))
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <file.txt | route>",
	Short: "Read a configuration file or a status route",
	Example: `  remoteconfig get network.txt --node 192.168.2.120
  remoteconfig get dmx/status?port=1 --node 192.168.2.120 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, addr, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		name := args[0]
		if !strings.HasSuffix(name, ".txt") {
			body, err := c.GetJSON(cmd.Context(), name)
			if err != nil {
				return err
			}
			return printRaw(body)
		}

		props, err := c.GetConfig(cmd.Context(), name)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			values := make(map[string]string, len(props))
			for _, p := range props {
				values[p.Key] = p.Value
			}
			return printJSON(map[string]any{name: values})
		}

		fmt.Println(ui.NewHeader("Node Configuration", "remoteconfig get "+name,
			ui.Param{Key: "Node", Value: addr},
		))
		tbl := ui.NewTable("Key", "Value")
		for _, p := range props {
			tbl.AddRow(p.Key, p.Value)
		}
		fmt.Println(tbl)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <file.txt> key=value...",
	Short: "Store values into a configuration file",
	Long: `Store values into a configuration file on the node.

Keys not named keep their current value. The node rejects unknown keys and
malformed values with HTTP 400 and stores nothing.`,
	Example: `  remoteconfig set network.txt hostname=stage-left use_static_ip=0`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parsePairs(args[1:])
		if err != nil {
			return err
		}
		props := make([]client.Property, len(pairs))
		for i, kv := range pairs {
			props[i] = client.Property{Key: kv[0], Value: kv[1]}
		}

		c, addr, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.SetConfig(cmd.Context(), args[0], props); err != nil {
			return err
		}

		fmt.Println(ui.NewSuccessResult("Configuration stored",
			ui.Param{Key: "Node", Value: addr},
			ui.Param{Key: "File", Value: args[0]},
			ui.Param{Key: "Keys", Value: strconv.Itoa(len(props))},
		))
		return nil
	},
}

var actionCmd = &cobra.Command{
	Use:   "action key=value...",
	Short: "Send actions to the node",
	Long: `Send one or more actions in a single request.

Known actions: display=0|1, identify=0|1, rdm=0|1, show=N,
date=YYYY-MM-DDTHH:MM:SS, rtc=YYYY-MM-DDTHH:MM:SS and reboot=1.
The node checks every action before performing any of them.`,
	Example: `  remoteconfig action identify=1 --node 192.168.2.120
  remoteconfig action date=2026-10-16T12:00:00 rtc=2026-10-16T12:00:00`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parsePairs(args)
		if err != nil {
			return err
		}
		actions := make([]client.Action, len(pairs))
		reboot := false
		for i, kv := range pairs {
			actions[i] = client.Action{Key: kv[0], Value: kv[1]}
			reboot = reboot || kv[0] == "reboot"
		}
		if reboot && !confirmReboot() {
			return nil
		}

		c, addr, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Do(cmd.Context(), actions...); err != nil {
			return err
		}

		fmt.Println(ui.NewSuccessResult("Actions performed",
			ui.Param{Key: "Node", Value: addr},
			ui.Param{Key: "Actions", Value: strings.Join(args, " ")},
		))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <N>",
	Short: "Load show N from the node's showfile directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid show number %q", args[0])
		}
		c, _, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.SelectShow(cmd.Context(), n); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult(fmt.Sprintf("Show %d loaded", n)))
		return nil
	},
}

var deleteShowCmd = &cobra.Command{
	Use:   "delete-show <N>",
	Short: "Delete show N from the node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid show number %q", args[0])
		}
		if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete show %d", n),
			[]string{"The show file is removed from the node", "This cannot be undone"}, "delete") {
			return nil
		}

		c, _, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.DeleteShow(cmd.Context(), n); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult(fmt.Sprintf("Show %d deleted", n)))
		return nil
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmReboot() {
			return nil
		}
		c, addr, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Reboot(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult("Reboot requested", ui.Param{Key: "Node", Value: addr}))
		return nil
	},
}

func confirmReboot() bool {
	if assumeYes {
		return true
	}
	return ui.Confirm(os.Stdin, os.Stdout, "Reboot node",
		[]string{"The node drops off the network while it restarts", "DMX output stops until it is back"}, "reboot")
}

// getClient returns a client for --node, or for the only node discovery
// finds.
func getClient(ctx context.Context) (*client.Client, string, error) {
	if nodeHost != "" {
		c := client.NewClient(nodeHost, nodePort)
		return c, strings.TrimPrefix(c.BaseURL, "http://"), nil
	}

	fmt.Println("No node specified, attempting auto-discovery...")
	nodes, err := discovery.NewScanner().Scan(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(nodes) {
	case 0:
		return nil, "", fmt.Errorf("no nodes found. Use --node to specify an address")
	case 1:
		node := nodes[0]
		fmt.Printf("Found node: %s\n\n", node)
		return client.NewClientWithURL(node.BaseURL()), node.Address(), nil
	default:
		fmt.Printf("Found %d nodes:\n", len(nodes))
		for i, node := range nodes {
			fmt.Printf("%d. %s\n", i+1, node)
		}
		return nil, "", fmt.Errorf("multiple nodes found. Use --node to specify which one")
	}
}

// parsePairs splits key=value arguments, keeping their order.
func parsePairs(args []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}

func printJSON(v any) error {
	out, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// printRaw re-indents a route document for the terminal.
func printRaw(body []byte) error {
	if outputFormat == "json" || !ui.IsTerminal() {
		fmt.Println(string(body))
		return nil
	}
	var v any
	if err := jsonAPI.Unmarshal(body, &v); err != nil {
		return err
	}
	return printJSON(v)
}

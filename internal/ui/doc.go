// Package ui renders the remoteconfig CLI output with Lipgloss.
//
// Components follow a "render once and print" pattern:
//
//   - Header: command banner showing the operation and its parameters
//   - Table: rows such as discovered nodes or configuration values
//   - Result: success, warning or failure box
//   - Confirm: warning box plus typed confirmation, for reboot and delete
//
// Example:
//
//	fmt.Println(ui.NewHeader("Node Configuration", "remoteconfig get network.txt",
//	    ui.Param{Key: "Node", Value: "192.168.2.120:80"}))
//
//	t := ui.NewTable("Key", "Value")
//	t.AddRow("hostname", "stage-left")
//	fmt.Println(t)
//
// # Logging Integration
//
// Logging is controlled by the REMOTECONFIG_LOG_LEVEL environment variable.
// When it is unset zap is silent, so only the curated output is shown.
package ui

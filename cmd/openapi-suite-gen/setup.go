package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

const serverName = "openapi-suite-gen"

var (
	setupBinary string
	setupScope  string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure integrations with external tools",
	Long:  `Configure openapi-suite-gen integrations with MCP clients such as Claude Code and GitHub Copilot.`,
}

var setupClaudeCodeCmd = &cobra.Command{
	Use:   "claude-code",
	Short: "Configure MCP server in Claude Code",
	Long: `Add the openapi-suite-gen MCP server to Claude Code.

Scopes:
  - "project" (default): Creates .mcp.json in the current directory.
  - "user": Runs "claude mcp add" to register the server globally.
    Requires the Claude Code CLI to be installed.

Examples:
  openapi-suite-gen setup claude-code
  openapi-suite-gen setup claude-code --scope user
  openapi-suite-gen setup claude-code --binary /usr/local/bin/openapi-suite-gen`,
	RunE: runSetupClaudeCode,
}

var setupCopilotCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Configure MCP server in GitHub Copilot (VS Code)",
	Long: `Add the openapi-suite-gen MCP server to GitHub Copilot in VS Code.

Scopes:
  - "project" (default): Creates .vscode/mcp.json in the current directory.
  - "user": Writes to the VS Code user-level mcp.json.

Examples:
  openapi-suite-gen setup copilot
  openapi-suite-gen setup copilot --scope user`,
	RunE: runSetupCopilot,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.AddCommand(setupClaudeCodeCmd)
	setupCmd.AddCommand(setupCopilotCmd)

	setupClaudeCodeCmd.Flags().StringVar(&setupBinary, "binary", "", "Path to openapi-suite-gen binary (default: auto-detect)")
	setupClaudeCodeCmd.Flags().StringVar(&setupScope, "scope", "project", "Scope: \"project\" (writes .mcp.json) or \"user\" (runs claude mcp add)")

	setupCopilotCmd.Flags().StringVar(&setupBinary, "binary", "", "Path to openapi-suite-gen binary (default: auto-detect)")
	setupCopilotCmd.Flags().StringVar(&setupScope, "scope", "project", "Scope: \"project\" (writes .vscode/mcp.json) or \"user\" (writes to VS Code user config)")
}

func binaryPath() (string, error) {
	if setupBinary != "" {
		return setupBinary, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to detect binary path: %w (use --binary to specify)", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved, nil
	}
	return exe, nil
}

func runSetupClaudeCode(cmd *cobra.Command, args []string) error {
	binary, err := binaryPath()
	if err != nil {
		return err
	}

	switch setupScope {
	case "project":
		existed, err := upsertServer(".mcp.json", "mcpServers", map[string]any{
			"command": binary,
			"args":    []string{"mcp"},
		})
		if err != nil {
			return err
		}
		reportServer(".mcp.json", binary, existed)
		fmt.Println("Claude Code will discover this MCP server when opened in this project.")
		fmt.Println("Commit .mcp.json to share the configuration with your team.")
		return nil
	case "user":
		return setupUserMCP(binary)
	default:
		return fmt.Errorf("invalid scope %q: must be \"project\" or \"user\"", setupScope)
	}
}

func runSetupCopilot(cmd *cobra.Command, args []string) error {
	binary, err := binaryPath()
	if err != nil {
		return err
	}

	var mcpFile string
	switch setupScope {
	case "project":
		mcpFile = filepath.Join(".vscode", "mcp.json")
	case "user":
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to determine user config directory: %w", err)
		}
		mcpFile = filepath.Join(configDir, "Code", "User", "mcp.json")
	default:
		return fmt.Errorf("invalid scope %q: must be \"project\" or \"user\"", setupScope)
	}

	// VS Code uses "servers", not "mcpServers", and requires a transport type
	existed, err := upsertServer(mcpFile, "servers", map[string]any{
		"type":    "stdio",
		"command": binary,
		"args":    []string{"mcp"},
	})
	if err != nil {
		return err
	}
	reportServer(mcpFile, binary, existed)
	if setupScope == "user" {
		fmt.Println("GitHub Copilot will now have access to openapi-suite-gen tools in all VS Code workspaces.")
	} else {
		fmt.Println("GitHub Copilot will discover this MCP server when VS Code opens this project.")
		fmt.Printf("Commit %s to share the configuration with your team.\n", mcpFile)
	}
	return nil
}

// upsertServer sets the openapi-suite-gen entry under section in the JSON
// file at mcpFile, keeping any other content. It reports whether an entry
// already existed.
func upsertServer(mcpFile, section string, entry map[string]any) (bool, error) {
	if dir := filepath.Dir(mcpFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	settings := make(map[string]any)
	data, err := os.ReadFile(mcpFile)
	if err == nil {
		if err := json.Unmarshal(data, &settings); err != nil {
			return false, fmt.Errorf("failed to parse %s: %w", mcpFile, err)
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", mcpFile, err)
	}

	var servers map[string]any
	if existing, ok := settings[section]; ok {
		servers, ok = existing.(map[string]any)
		if !ok {
			return false, fmt.Errorf("%s in %s has unexpected type", section, mcpFile)
		}
	} else {
		servers = make(map[string]any)
		settings[section] = servers
	}

	_, existed := servers[serverName]
	servers[serverName] = entry

	output, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}
	output = append(output, '\n')

	if err := os.WriteFile(mcpFile, output, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", mcpFile, err)
	}
	return existed, nil
}

func reportServer(mcpFile, binary string, existed bool) {
	if existed {
		fmt.Printf("Updated openapi-suite-gen MCP server in %s\n", mcpFile)
	} else {
		fmt.Printf("Added openapi-suite-gen MCP server to %s\n", mcpFile)
	}
	fmt.Printf("  Binary: %s\n", binary)
	fmt.Println()
}

// setupUserMCP runs "claude mcp add" to register the server globally.
func setupUserMCP(binary string) error {
	claudePath, err := exec.LookPath("claude")
	if err != nil {
		return fmt.Errorf("claude CLI not found in PATH: %w\n\nInstall Claude Code first: https://docs.anthropic.com/en/docs/claude-code", err)
	}

	cmd := exec.Command(claudePath, "mcp", "add", serverName, "--transport", "stdio", "--", binary, "mcp")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("claude mcp add failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Claude Code will now have access to openapi-suite-gen tools in all projects.")
	return nil
}

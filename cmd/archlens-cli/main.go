// Package main provides a CLI for interacting with the archlens server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL  string
	token      string
	configPath string
)

// Config represents the CLI configuration
type Config struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "archlens-cli",
		Short: "ArchLens CLI",
		Long:  "Command-line interface for interacting with the ArchLens server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if serverURL == "" || token == "" {
				loadConfig()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	// Review request commands
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review request management",
	}

	reviewSubmitCmd := &cobra.Command{
		Use:   "submit [document-id] [document-version]",
		Short: "Submit a document version for review",
		Args:  cobra.ExactArgs(2),
		Run:   submitReview,
	}

	reviewGetCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a review request",
		Args:  cobra.ExactArgs(1),
		Run:   getReview,
	}

	reviewExecutionsCmd := &cobra.Command{
		Use:   "executions [id]",
		Short: "List the executions recorded for a review request, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   listReviewExecutions,
	}

	reviewCmd.AddCommand(reviewSubmitCmd, reviewGetCmd, reviewExecutionsCmd)

	// Execution commands
	executionCmd := &cobra.Command{
		Use:   "execution",
		Short: "Review execution management",
	}

	executionStartCmd := &cobra.Command{
		Use:   "start [request-file]",
		Short: "Start a review execution from a JSON request file",
		Args:  cobra.ExactArgs(1),
		Run:   startExecution,
	}

	executionStatusCmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Get the status of an execution",
		Args:  cobra.ExactArgs(1),
		Run:   getExecutionStatus,
	}

	executionResultCmd := &cobra.Command{
		Use:   "result [id]",
		Short: "Get the result of a completed execution",
		Args:  cobra.ExactArgs(1),
		Run:   getExecutionResult,
	}

	executionCmd.AddCommand(executionStartCmd, executionStatusCmd, executionResultCmd)

	// Configuration commands
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Dimension configuration management",
	}

	configKeysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List configuration keys",
		Run:   listConfigKeys,
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get the active configuration version for a key",
		Args:  cobra.ExactArgs(1),
		Run:   getConfig,
	}

	configSetCmd := &cobra.Command{
		Use:   "set [key] [payload-file]",
		Short: "Append a new active configuration version from a JSON file",
		Args:  cobra.ExactArgs(2),
		Run:   setConfig,
	}

	configHistoryCmd := &cobra.Command{
		Use:   "history [key]",
		Short: "List all configuration versions for a key, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   getConfigHistory,
	}

	configCmd.AddCommand(configKeysCmd, configGetCmd, configSetCmd, configHistoryCmd)

	rootCmd.AddCommand(reviewCmd, executionCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig loads the CLI configuration
func loadConfig() {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".archlens", "cli-config.json")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Printf("Warning: Failed to read config file: %v\n", err)
		return
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		fmt.Printf("Warning: Failed to parse config file: %v\n", err)
		return
	}

	if serverURL == "" {
		serverURL = config.ServerURL
	}
	if token == "" {
		token = config.Token
	}
}

// sendRequest performs an authenticated request and returns the response body
func sendRequest(method, path string, body []byte, wantStatus int) []byte {
	if serverURL == "" {
		fmt.Println("Error: Server URL is required")
		os.Exit(1)
	}
	if token == "" {
		fmt.Println("Error: Bearer token is required")
		os.Exit(1)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode != wantStatus {
		fmt.Printf("Error: %s\n", respBody)
		os.Exit(1)
	}

	return respBody
}

// printJSON pretty prints a JSON response body
func printJSON(body []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(prettyJSON.String())
}

// submitReview submits a document version for review
func submitReview(cmd *cobra.Command, args []string) {
	reqBody, err := json.Marshal(map[string]string{
		"document_id":      args[0],
		"document_version": args[1],
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	body := sendRequest(http.MethodPost, "/api/v1/review-requests", reqBody, http.StatusCreated)
	printJSON(body)
}

// getReview gets a review request
func getReview(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/review-requests/"+args[0], nil, http.StatusOK)
	printJSON(body)
}

// listReviewExecutions lists the executions recorded for a review request
func listReviewExecutions(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/review-requests/"+args[0]+"/executions", nil, http.StatusOK)
	printJSON(body)
}

// startExecution starts a review execution from a request file
func startExecution(cmd *cobra.Command, args []string) {
	reqBody, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	body := sendRequest(http.MethodPost, "/api/v1/executions", reqBody, http.StatusAccepted)
	printJSON(body)
}

// getExecutionStatus gets the status of an execution
func getExecutionStatus(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/executions/"+args[0]+"/status", nil, http.StatusOK)
	printJSON(body)
}

// getExecutionResult gets the result of a completed execution
func getExecutionResult(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/executions/"+args[0]+"/result", nil, http.StatusOK)
	printJSON(body)
}

// listConfigKeys lists configuration keys
func listConfigKeys(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/configurations", nil, http.StatusOK)
	printJSON(body)
}

// getConfig gets the active configuration version for a key
func getConfig(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/configurations/"+args[0], nil, http.StatusOK)
	printJSON(body)
}

// setConfig appends a new active configuration version from a file
func setConfig(cmd *cobra.Command, args []string) {
	payload, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	body := sendRequest(http.MethodPut, "/api/v1/configurations/"+args[0], payload, http.StatusCreated)
	printJSON(body)
}

// getConfigHistory lists all configuration versions for a key
func getConfigHistory(cmd *cobra.Command, args []string) {
	body := sendRequest(http.MethodGet, "/api/v1/configurations/"+args[0]+"/history", nil, http.StatusOK)
	printJSON(body)
}

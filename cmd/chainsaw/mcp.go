package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kluth/chainsaw/internal/audit"
	"github.com/kluth/chainsaw/internal/telemetry"
)

func newMcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the Model Context Protocol (MCP) server",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP)
over stdio, exposing the audit engine as tools for AI assistants.`,
		RunE: runMcpServer,
	}
}

func runMcpServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	telemetry.InitLogger(cfg.Debug)
	auditor := buildAuditor(cfg, nil)

	s := mcpserver.NewMCPServer(
		"chainsaw",
		version,
		mcpserver.WithLogging(),
	)

	auditTool := mcp.NewTool("audit_package",
		mcp.WithDescription("Audit an npm package for supply-chain risks"),
		mcp.WithString("package_name",
			mcp.Description("The npm package name (e.g. 'express', '@babel/core')"),
			mcp.Required(),
		),
		mcp.WithString("version",
			mcp.Description("Version to audit (defaults to latest)"),
		),
	)
	s.AddTool(auditTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAuditPackage(ctx, auditor, request)
	})

	compareTool := mcp.NewTool("compare_versions",
		mcp.WithDescription("Compare the risk of two versions of an npm package"),
		mcp.WithString("package_name",
			mcp.Description("The npm package name"),
			mcp.Required(),
		),
		mcp.WithString("version_a",
			mcp.Description("The older version"),
			mcp.Required(),
		),
		mcp.WithString("version_b",
			mcp.Description("The newer version"),
			mcp.Required(),
		),
	)
	s.AddTool(compareTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCompareVersions(ctx, auditor, request)
	})

	if err := mcpserver.ServeStdio(s); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func stringArg(request mcp.CallToolRequest, key string) (string, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", false
	}
	v, ok := args[key].(string)
	return v, ok
}

func handleAuditPackage(ctx context.Context, auditor *audit.Auditor, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkgName, ok := stringArg(request, "package_name")
	if !ok {
		return mcp.NewToolResultError("package_name must be a string"), nil
	}
	ver, _ := stringArg(request, "version")

	id, err := audit.ParseIdentity(pkgName, ver)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := auditor.Audit(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("audit failed: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func handleCompareVersions(ctx context.Context, auditor *audit.Auditor, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkgName, ok := stringArg(request, "package_name")
	if !ok {
		return mcp.NewToolResultError("package_name must be a string"), nil
	}
	versionA, ok := stringArg(request, "version_a")
	if !ok {
		return mcp.NewToolResultError("version_a must be a string"), nil
	}
	versionB, ok := stringArg(request, "version_b")
	if !ok {
		return mcp.NewToolResultError("version_b must be a string"), nil
	}

	cmp, err := auditor.Compare(ctx, pkgName, versionA, versionB)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(cmp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal comparison: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/resource"
	"github.com/openziti/resourcestore/kernel/store"
)

const (
	SnapshotURI    = "resourcestore://snapshot"
	DefaultTimeout = 30 * time.Second
)

type ResourceMCPServer struct {
	server  *server.MCPServer
	module  *resource.Module
	store   store.ActionStore
	timeout time.Duration
}

func NewResourceMCPServer(m *resource.Module, s store.ActionStore) *ResourceMCPServer {
	srv := server.NewMCPServer(
		"Resource Store",
		"v1.0.0",
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(true),
	)

	rs := &ResourceMCPServer{
		server:  srv,
		module:  m,
		store:   s,
		timeout: DefaultTimeout,
	}

	rs.registerTools()
	rs.registerResources()

	return rs
}

func (rs *ResourceMCPServer) ServeStdio() error {
	return server.ServeStdio(rs.server)
}

func (rs *ResourceMCPServer) registerTools() {
	rs.server.AddTool(mcp.NewTool("list_resource_types",
		mcp.WithDescription("List the configured resource types"),
	), rs.listResourceTypesHandler)

	rs.server.AddTool(mcp.NewTool("find_record",
		mcp.WithDescription("Fetch one record from its remote source and store it"),
		mcp.WithString("resource_type",
			mcp.Description("Resource type, e.g. post"),
			mcp.Required(),
		),
		mcp.WithString("id",
			mcp.Description("Record id"),
			mcp.Required(),
		),
	), rs.findRecordHandler)

	rs.server.AddTool(mcp.NewTool("find_all",
		mcp.WithDescription("Fetch every record of a resource type and store them"),
		mcp.WithString("resource_type",
			mcp.Description("Resource type, e.g. post"),
			mcp.Required(),
		),
	), rs.findAllHandler)

	rs.server.AddTool(mcp.NewTool("get_records",
		mcp.WithDescription("Return the stored records and record statuses of a resource type without fetching"),
		mcp.WithString("resource_type",
			mcp.Description("Resource type, e.g. post"),
			mcp.Required(),
		),
	), rs.getRecordsHandler)
}

func (rs *ResourceMCPServer) registerResources() {
	snapshot := mcp.NewResource(SnapshotURI, "Resource Store Snapshot",
		mcp.WithResourceDescription("Current snapshot of every resource type"),
		mcp.WithMIMEType("application/json"),
	)
	rs.server.AddResource(snapshot, rs.snapshotHandler)
}

func (rs *ResourceMCPServer) listResourceTypesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"types": rs.module.Types(),
	})
}

func (rs *ResourceMCPServer) findRecordHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resourceType, err := request.RequireString("resource_type")
	if err != nil {
		return mcp.NewToolResultError("resource_type argument is required"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	attrs, err := rs.module.Fetch(ctx, rs.store, model.ResourceType(resourceType), model.ResourceId(id))
	if err != nil {
		pfxlog.Logger().WithError(err).Warnf("find_record %s/%s failed", resourceType, id)
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch %s/%s: %v", resourceType, id, err)), nil
	}

	return jsonResult(map[string]interface{}{
		"type":       resourceType,
		"id":         id,
		"attributes": attrs,
	})
}

func (rs *ResourceMCPServer) findAllHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resourceType, err := request.RequireString("resource_type")
	if err != nil {
		return mcp.NewToolResultError("resource_type argument is required"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	records, err := rs.module.FetchAll(ctx, rs.store, model.ResourceType(resourceType))
	if err != nil {
		pfxlog.Logger().WithError(err).Warnf("find_all %s failed", resourceType)
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch %s: %v", resourceType, err)), nil
	}

	return jsonResult(map[string]interface{}{
		"type":    resourceType,
		"count":   len(records),
		"records": records,
	})
}

func (rs *ResourceMCPServer) getRecordsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resourceType, err := request.RequireString("resource_type")
	if err != nil {
		return mcp.NewToolResultError("resource_type argument is required"), nil
	}

	ts, ok := rs.store.GetState().TypeState(model.ResourceType(resourceType))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type '%s'", resourceType)), nil
	}
	return jsonResult(ts)
}

func (rs *ResourceMCPServer) snapshotHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(rs.store.GetState())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SnapshotURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

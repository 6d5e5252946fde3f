package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ppa/backend/internal/services"
)

// Server exposes the PPA core operations as MCP tools so internal agents can
// drive procedure assignment without going through the REST surface. Every
// tool takes an explicit tenant_id because MCP calls carry no session.
type Server struct {
	mcpServer   *server.MCPServer
	assignments *services.AssignmentService
	tracker     *services.TrackerService
}

// NewServer creates a new Server.
func NewServer(assignments *services.AssignmentService, tracker *services.TrackerService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"PPA Procedures",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		assignments: assignments,
		tracker:     tracker,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"propose_defaults",
			mcp.WithDescription("Propose the default assignee for every action of a procedure"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("The tenant owning the procedure")),
			mcp.WithString("procedure_id", mcp.Required(), mcp.Description("The procedure to resolve defaults for")),
		),
		s.handleProposeDefaults,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"assign_procedure",
			mcp.WithDescription("Instantiate a procedure against a target entity with a complete assignment map"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("The tenant owning the procedure")),
			mcp.WithString("procedure_id", mcp.Required(), mcp.Description("The procedure to instantiate")),
			mcp.WithString("target_entity_id", mcp.Required(), mcp.Description("The company/client record to run the procedure against")),
			mcp.WithString("assignments", mcp.Required(), mcp.Description("JSON object mapping every action id to a user id")),
			mcp.WithString("due_date", mcp.Description("Optional due date in YYYY-MM-DD form")),
		),
		s.handleAssignProcedure,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_instances",
			mcp.WithDescription("List a tenant's procedure instances, newest first"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("The tenant to list instances for")),
		),
		s.handleListInstances,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_team",
			mcp.WithDescription("Return the distinct set of users assigned across an instance"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("The tenant owning the instance")),
			mcp.WithString("instance_id", mcp.Required(), mcp.Description("The instance to inspect")),
		),
		s.handleGetTeam,
	)
}

func stringArg(request mcp.CallToolRequest, key string) (string, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", false
	}
	value, ok := args[key].(string)
	return value, ok && value != ""
}

func (s *Server) handleProposeDefaults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := stringArg(request, "tenant_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}
	procedureID, ok := stringArg(request, "procedure_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: procedure_id"), nil
	}

	proposals, err := s.assignments.ProposeDefaults(ctx, tenant, procedureID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to propose defaults: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(proposals)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAssignProcedure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := stringArg(request, "tenant_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}
	procedureID, ok := stringArg(request, "procedure_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: procedure_id"), nil
	}
	targetEntityID, ok := stringArg(request, "target_entity_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: target_entity_id"), nil
	}
	rawAssignments, ok := stringArg(request, "assignments")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: assignments"), nil
	}

	var assignments map[string]string
	if err := json.Unmarshal([]byte(rawAssignments), &assignments); err != nil {
		return mcp.NewToolResultError("assignments must be a JSON object of action id to user id"), nil
	}

	var dueDate *time.Time
	if raw, ok := stringArg(request, "due_date"); ok {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return mcp.NewToolResultError("due_date must be YYYY-MM-DD"), nil
		}
		dueDate = &parsed
	}

	inst, err := s.assignments.AssignProcedure(ctx, tenant, procedureID, targetEntityID, dueDate, assignments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to assign procedure: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(inst)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListInstances(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := stringArg(request, "tenant_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}

	instances, err := s.tracker.ListInstances(ctx, tenant, 0, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list instances: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(instances)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetTeam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, ok := stringArg(request, "tenant_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}
	instanceID, ok := stringArg(request, "instance_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: instance_id"), nil
	}

	team, err := s.tracker.GetTeam(ctx, tenant, instanceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get team: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(team)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers wires the MCP server onto a plain mux under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}

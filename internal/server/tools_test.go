package server

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expected := []string{
		"calibration_load",
		"color_params_load",
		"color_params_save",
		"color_params_get",
		"objects_find",
		"objects_locate",
		"objects_list",
		"objects_clear",
		"classifier_train",
		"classifier_query",
	}
	if len(tools) != len(expected) {
		t.Fatalf("Tool count: got %d, want %d", len(tools), len(expected))
	}

	seen := map[string]bool{}
	for i, tool := range tools {
		if tool.Name != expected[i] {
			t.Errorf("tool %d: got %s, want %s", i, tool.Name, expected[i])
		}
		if seen[tool.Name] {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		seen[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("%s: empty description", tool.Name)
		}
	}
}

func TestToolSchemas(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type should be object", tool.Name)
		}
		props, ok := tool.InputSchema["properties"].(map[string]interface{})
		if !ok {
			t.Errorf("%s: schema has no properties map", tool.Name)
			continue
		}
		required, _ := tool.InputSchema["required"].([]string)
		for _, name := range required {
			if _, ok := props[name]; !ok {
				t.Errorf("%s: required parameter %s not in properties", tool.Name, name)
			}
		}
		if _, err := json.Marshal(tool); err != nil {
			t.Errorf("%s: schema does not marshal: %v", tool.Name, err)
		}
	}
}

func TestToolSchemas_SharedSegmentationProperties(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "objects_find" && tool.Name != "objects_locate" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, name := range []string{"colors", "min_pixels", "max_pixels", "roi_factor"} {
			if _, ok := props[name]; !ok {
				t.Errorf("%s: missing %s", tool.Name, name)
			}
		}
	}
}

func TestEveryToolIsDispatched(t *testing.T) {
	s := newTestServer(t)
	for _, tool := range GetToolDefinitions() {
		_, err := s.executeTool(tool.Name, nil)
		if err != nil && strings.Contains(err.Error(), "unknown tool") {
			t.Errorf("%s is listed but not dispatched", tool.Name)
		}
	}

	if _, err := s.executeTool("image_crop", nil); err == nil {
		t.Error("unknown tool should fail")
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}

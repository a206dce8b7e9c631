package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func colorsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Color names to search for (e.g. red, blue2, colored). Default: every color with parameters",
	}
}

func segmentationProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_pixels": map[string]interface{}{
			"type":        "integer",
			"description": "Minimum region size in pixels. Default from server configuration",
		},
		"max_pixels": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum region size in pixels, 0 for no limit",
		},
		"roi_factor": map[string]interface{}{
			"type":        "number",
			"description": "Restrict the search to the previous frame's objects, with boxes scaled by this factor. Negative disables",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Calibration and Color Parameters
		{
			Name:        "calibration_load",
			Description: "Load a stereo camera calibration (JSON with left and right intrinsics, distortion, rotation and translation). Required before objects_locate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the calibration file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_params_load",
			Description: "Load HSV color thresholds from a text file with one line per color: name hue hue_tolerance min_sat max_sat min_val max_val.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the color parameter file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_params_save",
			Description: "Save the current HSV color thresholds to a text file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path of the file to write"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_params_get",
			Description: "Get the HSV thresholds of one color, or of every color when none is given. Hue is 0-179, saturation and value 0-255.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Color name (optional)",
					},
				},
			},
		},

		// Object Detection
		{
			Name:        "objects_find",
			Description: "Segment a single image by color and return the connected regions as objects with IDs that persist across calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path":   pathProperty("Absolute path to the image file"),
					"colors": colorsProperty(),
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the image with object boxes drawn, as base64 PNG",
					},
				}, segmentationProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "objects_locate",
			Description: "Find colored objects in a stereo image pair, match them between the views and triangulate their 3D positions. Objects keep their identity across calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"left_path":  pathProperty("Absolute path to the left image"),
					"right_path": pathProperty("Absolute path to the right image"),
					"colors":     colorsProperty(),
					"min_z": map[string]interface{}{
						"type":        "number",
						"description": "Minimum depth in calibration units",
					},
					"max_z": map[string]interface{}{
						"type":        "number",
						"description": "Maximum depth in calibration units",
					},
					"max_epipolar_distance": map[string]interface{}{
						"type":        "number",
						"description": "Maximum distance in pixels from the epipolar line (or row difference when rectified)",
					},
					"rectified": map[string]interface{}{
						"type":        "boolean",
						"description": "Images are rectified",
					},
					"use_distortion": map[string]interface{}{
						"type":        "boolean",
						"description": "Remove lens distortion before matching and triangulation",
					},
				}, segmentationProperties()),
				"required": []string{"left_path", "right_path"},
			},
		},
		{
			Name:        "objects_list",
			Description: "List the 3D objects of the last objects_locate call.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "objects_clear",
			Description: "Forget all objects so that the next call starts without identity history.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Classification
		{
			Name:        "classifier_train",
			Description: "Train the nearest-neighbor object classifier. Located objects are named after the closest sample. Features are [aspect, fill, hue/360, saturation, value] of the left region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"samples": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"label":   map[string]interface{}{"type": "string"},
								"feature": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
							},
							"required": []string{"label", "feature"},
						},
					},
				},
				"required": []string{"samples"},
			},
		},
		{
			Name:        "classifier_query",
			Description: "Classify a feature vector with the trained classifier.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"feature": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "number"},
					},
				},
				"required": []string{"feature"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

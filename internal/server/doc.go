// Package server implements the MCP (Model Context Protocol) server for stereo
// object localization.
//
// This package provides a JSON-RPC 2.0 server that exposes the color
// segmentation, stereo matching and classification pipeline through the MCP
// protocol, so that an MCP client can ask where colored objects are in a
// calibrated stereo rig's view.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Calibration and Color Parameters:
//   - calibration_load: Load the stereo calibration used for matching
//   - color_params_load: Load HSV thresholds from a text file
//   - color_params_save: Write the current thresholds
//   - color_params_get: Inspect thresholds per color
//
// Object Detection:
//   - objects_find: Segment one image and return its 2D objects
//   - objects_locate: Match objects across a stereo pair and triangulate them
//   - objects_list: Return the 3D objects of the last frame
//   - objects_clear: Drop all identity history
//
// Classification:
//   - classifier_train: Train the nearest-neighbor object classifier
//   - classifier_query: Classify a feature vector
//
// # State
//
// Object identities persist between objects_find calls and between
// objects_locate calls: each frame is matched against the previous one and
// reuses its IDs. Images are cached by path for the lifetime of the process;
// objects_clear empties the cache together with the object lists.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	logger, _ := logging.New("info")
//	srv := server.New(config.Default(), logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal(err)
//	}
package server

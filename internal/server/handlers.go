package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-objects-mcp/internal/classify"
	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
	"github.com/ironsheep/stereo-objects-mcp/internal/stereo"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "objects_locate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debugw("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for omitted parameters
//  3. Loads images from cache as needed
//  4. Runs the finder, calibration or classifier operation
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Calibration and Color Parameters
	case "calibration_load":
		return s.handleCalibrationLoad(args)
	case "color_params_load":
		return s.handleColorParamsLoad(args)
	case "color_params_save":
		return s.handleColorParamsSave(args)
	case "color_params_get":
		return s.handleColorParamsGet(args)

	// Object Detection
	case "objects_find":
		return s.handleObjectsFind(args)
	case "objects_locate":
		return s.handleObjectsLocate(args)
	case "objects_list":
		return s.handleObjectsList()
	case "objects_clear":
		return s.handleObjectsClear()

	// Classification
	case "classifier_train":
		return s.handleClassifierTrain(args)
	case "classifier_query":
		return s.handleClassifierQuery(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// CallTool runs a tool outside the JSON-RPC loop and returns its result
// value. It is used by the command line front end.
func (s *Server) CallTool(name string, args json.RawMessage) (interface{}, error) {
	return s.executeTool(name, args)
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Calibration and Color Parameter Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func parsePathArgs(args json.RawMessage) (string, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}
	if a.Path == "" {
		return "", errors.New("path is required")
	}
	return a.Path, nil
}

type calibrationResult struct {
	Loaded bool   `json:"loaded"`
	Left   string `json:"left"`
	Right  string `json:"right"`
}

func (s *Server) handleCalibrationLoad(args json.RawMessage) (interface{}, error) {
	path, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	if err := s.stereo.Init(path); err != nil {
		return nil, err
	}
	c := s.stereo.Calibration()
	left, right := c.Left(), c.Right()
	return calibrationResult{Loaded: true, Left: left.String(), Right: right.String()}, nil
}

// loadColorParams reads path into the shared parameter set. The set is only
// updated when the whole file parses.
func (s *Server) loadColorParams(path string) error {
	next := *s.params
	if err := next.LoadFromFile(path); err != nil {
		return err
	}
	*s.params = next
	return nil
}

type colorParamsEntry struct {
	Color string `json:"color"`
	colorparams.Params
}

type colorParamsResult struct {
	Colors []colorParamsEntry `json:"colors"`
}

func (s *Server) colorParamsResult(colors []colorparams.Color) colorParamsResult {
	out := colorParamsResult{Colors: make([]colorParamsEntry, 0, len(colors))}
	for _, c := range colors {
		if p, ok := s.params.Get(c); ok {
			out.Colors = append(out.Colors, colorParamsEntry{Color: c.String(), Params: p})
		}
	}
	return out
}

func (s *Server) handleColorParamsLoad(args json.RawMessage) (interface{}, error) {
	path, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	if err := s.loadColorParams(path); err != nil {
		return nil, err
	}
	return s.colorParamsResult(s.params.Colors()), nil
}

func (s *Server) handleColorParamsSave(args json.RawMessage) (interface{}, error) {
	path, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	if err := s.params.SaveToFile(path); err != nil {
		return nil, err
	}
	return map[string]interface{}{"saved": path, "count": len(s.params.Colors())}, nil
}

type colorParamsGetArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleColorParamsGet(args json.RawMessage) (interface{}, error) {
	var a colorParamsGetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		return s.colorParamsResult(s.params.Colors()), nil
	}
	c, err := colorparams.Parse(a.Color)
	if err != nil {
		return nil, err
	}
	if _, ok := s.params.Get(c); !ok {
		return nil, errors.Wrapf(detection.ErrNoColorParams, "%s", c)
	}
	return s.colorParamsResult([]colorparams.Color{c}), nil
}

// === Object Detection Handlers ===

// segmentationArgs are the optional per-call overrides of the segmentation
// defaults.
type segmentationArgs struct {
	Colors    []string `json:"colors"`
	MinPixels *int     `json:"min_pixels"`
	MaxPixels *int     `json:"max_pixels"`
	ROIFactor *float64 `json:"roi_factor"`
}

type segmentation struct {
	colors    []colorparams.Color
	minPixels int
	maxPixels int
	roiFactor float64
}

func (s *Server) segmentation(a segmentationArgs) (segmentation, error) {
	seg := segmentation{
		minPixels: s.cfg.MinPixels,
		maxPixels: s.cfg.MaxPixels,
		roiFactor: s.cfg.ROIFactor,
	}
	if a.MinPixels != nil {
		seg.minPixels = *a.MinPixels
	}
	if a.MaxPixels != nil {
		seg.maxPixels = *a.MaxPixels
	}
	if a.ROIFactor != nil {
		seg.roiFactor = *a.ROIFactor
	}

	// Colors are checked before PrepareImages so a bad request leaves the
	// previous frame's objects in place as identity candidates.
	for _, name := range a.Colors {
		c, err := colorparams.Parse(name)
		if err != nil {
			return seg, err
		}
		if _, ok := s.params.Get(c); !ok && c != colorparams.Colored {
			return seg, errors.Wrapf(detection.ErrNoColorParams, "%s", c)
		}
		seg.colors = append(seg.colors, c)
	}
	if len(seg.colors) == 0 {
		// Colored overlaps every other color, so it is only searched on request.
		for _, c := range s.params.Colors() {
			if c != colorparams.None && c != colorparams.Colored {
				seg.colors = append(seg.colors, c)
			}
		}
	}
	return seg, nil
}

// object2DView is the JSON form of a single-view object.
type object2DView struct {
	ID       int        `json:"id"`
	Color    string     `json:"color"`
	Type     string     `json:"type"`
	Centroid [2]float64 `json:"centroid"`
	Bounds   [4]int     `json:"bounds"` // x1, y1, x2, y2 (inclusive)
	Pixels   int        `json:"pixels"`
}

func view2D(o detection.Object2DEntry) object2DView {
	r := o.Region
	return object2DView{
		ID:       o.ID,
		Color:    o.Color.String(),
		Type:     o.Type.String(),
		Centroid: [2]float64{r.Centroid.X, r.Centroid.Y},
		Bounds:   [4]int{r.MinX, r.MinY, r.MaxX, r.MaxY},
		Pixels:   r.Pixels,
	}
}

type objectsFindArgs struct {
	Path     string `json:"path"`
	Annotate bool   `json:"annotate"`
	segmentationArgs
}

type objectsFindResult struct {
	Count     int                  `json:"count"`
	Objects   []object2DView       `json:"objects"`
	Annotated *imaging.ImageResult `json:"annotated,omitempty"`
}

func (s *Server) handleObjectsFind(args json.RawMessage) (interface{}, error) {
	var a objectsFindArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	seg, err := s.segmentation(a.segmentationArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	s.mono.PrepareImages(img, seg.roiFactor, false)
	for _, c := range seg.colors {
		if _, err := s.mono.FindObjects(c, seg.minPixels, seg.maxPixels); err != nil {
			return nil, err
		}
	}
	n := s.mono.Finalize()

	objs := s.mono.Objects()
	result := objectsFindResult{Count: n, Objects: make([]object2DView, len(objs))}
	boxes := make([]imaging.Annotation, len(objs))
	for i, o := range objs {
		result.Objects[i] = view2D(o)
		boxes[i] = imaging.Annotation{Rect: o.Region.Bounds(), Label: fmt.Sprintf("#%d", o.ID)}
	}
	if a.Annotate {
		if result.Annotated, err = imaging.EncodePNG(imaging.DrawAnnotations(img, boxes, "")); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// object3DView is the JSON form of a located object.
type object3DView struct {
	LeftID        int        `json:"left_id"`
	RightID       int        `json:"right_id"`
	Color         string     `json:"color"`
	Type          string     `json:"type"`
	Name          string     `json:"name,omitempty"`
	ClassID       int        `json:"class_id"`
	WorldPoint    [3]float64 `json:"world_point"`
	LeftCentroid  [2]float64 `json:"left_centroid"`
	RightCentroid [2]float64 `json:"right_centroid"`
	Pixels        [2]int     `json:"pixels"`
	Quality       float64    `json:"quality"`
	Quality2      float64    `json:"quality2"`
}

func view3D(o stereo.Object3DEntry) object3DView {
	return object3DView{
		LeftID:        o.RegionIDLeft,
		RightID:       o.RegionIDRight,
		Color:         o.Color.String(),
		Type:          o.Type.String(),
		Name:          o.Name,
		ClassID:       o.ClassID,
		WorldPoint:    [3]float64{o.WorldPoint.X, o.WorldPoint.Y, o.WorldPoint.Z},
		LeftCentroid:  [2]float64{o.RegionLeft.Centroid.X, o.RegionLeft.Centroid.Y},
		RightCentroid: [2]float64{o.RegionRight.Centroid.X, o.RegionRight.Centroid.Y},
		Pixels:        [2]int{o.RegionLeft.Pixels, o.RegionRight.Pixels},
		Quality:       o.Quality,
		Quality2:      o.Quality2,
	}
}

type objectsResult struct {
	Count   int            `json:"count"`
	Objects []object3DView `json:"objects"`
}

func (s *Server) objectsResult() objectsResult {
	objs := s.stereo.Objects()
	out := objectsResult{Count: len(objs), Objects: make([]object3DView, len(objs))}
	for i, o := range objs {
		out.Objects[i] = view3D(o)
	}
	return out
}

type objectsLocateArgs struct {
	LeftPath            string   `json:"left_path"`
	RightPath           string   `json:"right_path"`
	MinZ                *float64 `json:"min_z"`
	MaxZ                *float64 `json:"max_z"`
	MaxEpipolarDistance *float64 `json:"max_epipolar_distance"`
	Rectified           *bool    `json:"rectified"`
	UseDistortion       *bool    `json:"use_distortion"`
	segmentationArgs
}

// finalizeOptions applies the per-call overrides to the configured matching
// options. One searched color restricts matching to it; several match all.
func (s *Server) finalizeOptions(a objectsLocateArgs, colors []colorparams.Color) stereo.FinalizeOptions {
	color := colorparams.None
	if len(colors) == 1 {
		color = colors[0]
	}
	opts := s.cfg.FinalizeOptions(color)
	if a.MinZ != nil {
		opts.MinZ = *a.MinZ
	}
	if a.MaxZ != nil {
		opts.MaxZ = *a.MaxZ
	}
	if a.MaxEpipolarDistance != nil {
		opts.MaxEpipolarDistance = *a.MaxEpipolarDistance
	}
	if a.Rectified != nil {
		opts.Rectified = *a.Rectified
	}
	if a.UseDistortion != nil {
		opts.UseDistortion = *a.UseDistortion
	}
	return opts
}

func (s *Server) handleObjectsLocate(args json.RawMessage) (interface{}, error) {
	var a objectsLocateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.stereo.Calibration() == nil {
		return nil, errors.New("no stereo calibration loaded; call calibration_load first")
	}
	seg, err := s.segmentation(a.segmentationArgs)
	if err != nil {
		return nil, err
	}
	left, err := s.cache.Load(a.LeftPath)
	if err != nil {
		return nil, errors.Wrap(err, "left image")
	}
	right, err := s.cache.Load(a.RightPath)
	if err != nil {
		return nil, errors.Wrap(err, "right image")
	}

	s.stereo.PrepareImages(left, right, seg.roiFactor, false)
	for _, c := range seg.colors {
		if _, _, err := s.stereo.FindObjects(context.Background(), c, seg.minPixels, seg.maxPixels); err != nil {
			return nil, err
		}
	}
	s.stereo.Finalize(s.finalizeOptions(a, seg.colors))
	return s.objectsResult(), nil
}

func (s *Server) handleObjectsList() (interface{}, error) {
	return s.objectsResult(), nil
}

func (s *Server) handleObjectsClear() (interface{}, error) {
	s.stereo.ClearObjectList()
	s.mono.ClearObjectList()
	s.cache.Clear()
	return map[string]interface{}{"cleared": true}, nil
}

// === Classification Handlers ===

type classifierTrainArgs struct {
	Samples []classify.Sample `json:"samples"`
}

func (s *Server) handleClassifierTrain(args json.RawMessage) (interface{}, error) {
	var a classifierTrainArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.knn.Train(a.Samples); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"samples":   len(a.Samples),
		"dimension": s.knn.Dimension(),
		"labels":    s.knn.Labels(),
	}, nil
}

type classifierQueryArgs struct {
	Feature []float64 `json:"feature"`
}

type classifierQueryResult struct {
	Label    string  `json:"label"`
	ClassID  int     `json:"class_id"`
	Distance float64 `json:"distance"`
}

func (s *Server) handleClassifierQuery(args json.RawMessage) (interface{}, error) {
	var a classifierQueryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if !s.knn.Trained() {
		return nil, errors.New("classifier is not trained")
	}
	label, d, ok := s.knn.Classify(a.Feature)
	if !ok {
		return nil, errors.Errorf("feature has %d values, classifier expects %d", len(a.Feature), s.knn.Dimension())
	}
	return classifierQueryResult{Label: label, ClassID: s.knn.ClassID(label), Distance: d}, nil
}

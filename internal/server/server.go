package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/stereo-objects-mcp/internal/classify"
	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/config"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
	"github.com/ironsheep/stereo-objects-mcp/internal/ocr"
	"github.com/ironsheep/stereo-objects-mcp/internal/stereo"
)

// Version is reported in the initialize handshake.
var Version = "dev"

// Server handles MCP protocol communication
type Server struct {
	cfg    config.Config
	logger *zap.SugaredLogger
	cache  *imaging.ImageCache

	params *colorparams.Set
	stereo *stereo.ObjectFinder
	mono   *detection.ObjectFinder
	knn    *classify.KNN
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server with the pipeline defaults of cfg. The calibration and
// color parameter files named in cfg are loaded when set; failures are logged
// and the corresponding tools can load them later. A nil logger disables
// logging.
func New(cfg config.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		cache:  imaging.NewImageCache(),
		params: colorparams.Default(),
		knn:    classify.NewKNN(cfg.ClassifierBucketSize, cfg.ClassifierMaxLeaves),
	}

	if cfg.ColorParamsPath != "" {
		if err := s.loadColorParams(cfg.ColorParamsPath); err != nil {
			logger.Warnw("using default color parameters", "error", err)
		}
	}

	s.stereo = stereo.NewObjectFinder(logger.Named("stereo"), s.params)
	s.stereo.SetParallel(cfg.Parallel)
	s.mono = detection.NewObjectFinder(logger.Named("mono"), s.params)
	regionFilter := cfg.RegionFilter()
	for _, f := range []*detection.ObjectFinder{s.stereo.Left(), s.stereo.Right(), s.mono} {
		f.SetMorphologyRadius(cfg.MorphologyRadius)
		f.SetRegionFilter(regionFilter)
	}
	s.stereo.SetEntryFilter(cfg.EntryFilter())

	if cfg.CalibrationPath != "" {
		// Init logs the failure itself.
		_ = s.stereo.Init(cfg.CalibrationPath)
	}

	s.stereo.AddClassifier(&classify.ObjectClassifier{
		Model:       s.knn,
		Frame:       s.stereo.Left().Frame,
		MaxDistance: cfg.ClassifierMaxDistance,
	})
	if cfg.OCREnabled {
		s.stereo.AddClassifier(&ocr.LabelClassifier{
			Recognizer:    ocr.NewTesseract(cfg.OCRLanguage),
			Frame:         s.stereo.Left().Frame,
			MinConfidence: cfg.OCRMinConfidence,
			Logger:        logger.Named("ocr"),
		})
	}
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve processes newline-delimited JSON-RPC requests from r until EOF and
// writes the responses to w.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warnw("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Errorw("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debugw("request", "method", req.Method, "id", req.ID)
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "stereo-objects-mcp",
				"version": Version,
			},
		},
	}
}

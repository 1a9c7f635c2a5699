package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server frames channels driven over an NDJSON request stream
type Server struct {
	pipeline *pipeline.Pipeline
	profile  string
	encoder  *json.Encoder
	decoder  *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(p *pipeline.Pipeline, profile string, in io.Reader, out io.Writer) *Server {
	return &Server{
		pipeline: p,
		profile:  profile,
		encoder:  json.NewEncoder(out),
		decoder:  json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop. Channels still open when it returns
// are closed.
func (s *Server) Run(ctx context.Context) error {
	defer s.pipeline.CloseAll()

	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					// No more pending requests
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	switch req.Type {
	case TypeOpen:
		s.handleOpen(req.Payload)
	case TypeData:
		s.handleData(ctx, req.Payload)
	case TypeClose:
		s.handleClose(req.Payload)
	case TypeShutdown:
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	s.send(true, "ready", ReadyData{
		Version:  Version,
		Profile:  s.profile,
		Strategy: s.pipeline.Framer().Strategy().Name(),
	}, "")
}

func (s *Server) handleOpen(payload json.RawMessage) {
	var p OpenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeOpen, err.Error())
		return
	}

	var err error
	if p.Capacity > 0 || p.MaxSize > 0 {
		err = s.pipeline.OpenSize(p.Key, p.Capacity, p.MaxSize)
	} else {
		err = s.pipeline.Open(p.Key)
	}
	if err != nil {
		s.sendError(TypeOpen, err.Error())
		return
	}

	s.send(true, TypeOpen, ChannelData{Key: p.Key}, "")
}

func (s *Server) handleData(ctx context.Context, payload json.RawMessage) {
	var p DataPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeData, err.Error())
		return
	}

	packets, err := s.pipeline.Feed(ctx, p.Key, p.Data)
	if packets == nil {
		packets = []*types.Packet{}
	}
	data := PacketsData{Key: p.Key, Packets: packets, Handled: len(packets) > 0}
	if err != nil {
		// Packets framed before the error are still reported.
		s.send(false, "packets", data, err.Error())
		return
	}
	s.send(true, "packets", data, "")
}

func (s *Server) handleClose(payload json.RawMessage) {
	var p ClosePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeClose, err.Error())
		return
	}

	n, ok := s.pipeline.Close(p.Key)
	if !ok {
		s.sendError(TypeClose, fmt.Sprintf("channel not found: %q", p.Key))
		return
	}
	s.send(true, TypeClose, ChannelData{Key: p.Key, Packets: n}, "")
}

func (s *Server) send(success bool, respType string, v any, errMsg string) {
	data, _ := json.Marshal(v)
	s.encoder.Encode(Response{
		Success: success,
		Type:    respType,
		Data:    data,
		Error:   errMsg,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}

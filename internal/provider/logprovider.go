package provider

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/gofanout/track/internal/metrics"
	"github.com/gofanout/track/pkg/track"
)

// LogProvider appends one NDJSON line per tracking call to a file, or to
// stdout when LOG_PATH=stdout.
type LogProvider struct {
	dst string
	mu  sync.Mutex
	f   *os.File
	out *json.Encoder
}

// NewLogProvider reads LOG_PATH (default "ndjson.log").
func NewLogProvider() *LogProvider {
	dst := os.Getenv("LOG_PATH")
	if dst == "" {
		dst = "ndjson.log"
	}
	return &LogProvider{dst: dst}
}

func (s *LogProvider) Name() string { return "log" }

func (s *LogProvider) Start(ctx context.Context) error {
	if s.dst == "stdout" {
		s.out = json.NewEncoder(os.Stdout)
		return nil
	}
	f, err := os.OpenFile(s.dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.f = f
	s.out = json.NewEncoder(f)
	return nil
}

func (s *LogProvider) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

func (s *LogProvider) LogView(v track.View)         { s.write(viewRecord(v)) }
func (s *LogProvider) LogEvent(e track.Event)       { s.write(eventRecord(e)) }
func (s *LogProvider) LogPurchase(p track.Purchase) { s.write(purchaseRecord(p)) }

func (s *LogProvider) SetUserProperty(value *string, key string) {
	s.write(propertyRecord(value, key))
}

func (s *LogProvider) write(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		// Not started; drop rather than fail the dispatch.
		metrics.IncProviderError(s.Name(), "not_started")
		return
	}
	if err := s.out.Encode(r); err != nil {
		metrics.IncProviderError(s.Name(), "write")
		log.Printf("log provider: write failed: %v", err)
		return
	}
	metrics.IncDispatch(s.Name(), r.Kind)
}

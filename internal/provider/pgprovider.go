package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/gofanout/track/internal/metrics"
	"github.com/gofanout/track/pkg/track"
)

// PGConfig holds configuration for the Postgres provider.
type PGConfig struct {
	DSN           string
	Table         string
	BatchSize     int
	FlushInterval time.Duration
}

// LoadPGConfig reads PG_* environment variables.
func LoadPGConfig() PGConfig {
	return PGConfig{
		DSN:           getEnvOr("PG_DSN", ""),
		Table:         getEnvOr("PG_TABLE", "track_records"),
		BatchSize:     getIntEnv("PG_BATCH_SIZE", 100),
		FlushInterval: time.Duration(getIntEnv("PG_FLUSH_MS", 1000)) * time.Millisecond,
	}
}

func getIntEnv(key string, defaultValue int) int {
	if v := getEnvOr(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// PGProvider batches records and inserts them into a single table with a
// jsonb payload column.
type PGProvider struct {
	cfg PGConfig
	db  *sql.DB

	mu  sync.Mutex
	buf []Record

	stop chan struct{}
	done chan struct{}
}

// NewPGProvider creates a PGProvider that opens its own connection on Start.
func NewPGProvider(cfg PGConfig) *PGProvider {
	return &PGProvider{cfg: cfg}
}

// NewPGProviderWithDB creates a PGProvider over an existing handle; used
// by tests and by hosts that manage their own pool.
func NewPGProviderWithDB(db *sql.DB, cfg PGConfig) *PGProvider {
	return &PGProvider{cfg: cfg, db: db}
}

func (s *PGProvider) Name() string { return "postgres" }

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateTableName rejects anything that could smuggle SQL through the
// interpolated table identifier.
func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func (s *PGProvider) Start(ctx context.Context) error {
	if err := validateTableName(s.cfg.Table); err != nil {
		return err
	}
	if s.cfg.BatchSize <= 0 {
		s.cfg.BatchSize = 100
	}
	if s.cfg.FlushInterval <= 0 {
		s.cfg.FlushInterval = time.Second
	}

	if s.db == nil {
		db, err := sql.Open("postgres", s.cfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		s.db = db
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.flushLoop()

	return nil
}

func (s *PGProvider) LogView(v track.View)         { s.enqueue(viewRecord(v)) }
func (s *PGProvider) LogEvent(e track.Event)       { s.enqueue(eventRecord(e)) }
func (s *PGProvider) LogPurchase(p track.Purchase) { s.enqueue(purchaseRecord(p)) }

func (s *PGProvider) SetUserProperty(value *string, key string) {
	s.enqueue(propertyRecord(value, key))
}

func (s *PGProvider) enqueue(r Record) {
	s.mu.Lock()
	s.buf = append(s.buf, r)
	full := len(s.buf) >= s.cfg.BatchSize
	s.mu.Unlock()

	metrics.IncDispatch(s.Name(), r.Kind)

	if full {
		s.flush()
	}
}

func (s *PGProvider) flushLoop() {
	defer close(s.done)
	interval := s.cfg.FlushInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stop:
			return
		}
	}
}

// flush writes the buffered records in one multi-row insert.
func (s *PGProvider) flush() {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(batch) == 0 || s.db == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.cfg.Table)
	sb.WriteString(" (record_id, ts, kind, payload) VALUES ")

	args := make([]any, 0, len(batch)*4)
	for i, r := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		sb.WriteString("($" + strconv.Itoa(base+1) + ", $" + strconv.Itoa(base+2) +
			", $" + strconv.Itoa(base+3) + ", $" + strconv.Itoa(base+4) + ")")

		payload, err := json.Marshal(r)
		if err != nil {
			metrics.IncProviderError(s.Name(), "serialize")
			log.Printf("pg provider: serialize failed: %v", err)
			payload = []byte("{}")
		}
		args = append(args, r.RecordID, r.TS, r.Kind, payload)
	}

	if _, err := s.db.Exec(sb.String(), args...); err != nil {
		metrics.IncProviderError(s.Name(), "insert")
		log.Printf("pg provider: insert of %d records failed: %v", len(batch), err)
	}
}

func (s *PGProvider) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	s.flush()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

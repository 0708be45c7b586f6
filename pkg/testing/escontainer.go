package testing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/wait"
)

// HistoryES is a single-node Elasticsearch for grading history tests.
type HistoryES struct {
	Container *elasticsearch.ElasticsearchContainer
	Addresses []string
}

// NewHistoryES starts Elasticsearch with security disabled, or skips tb in short mode.
func NewHistoryES(ctx context.Context, tb testing.TB) *HistoryES {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping elasticsearch integration test in short mode")
	}

	container, err := elasticsearch.Run(ctx,
		"docker.elastic.co/elasticsearch/elasticsearch:8.19.0",
		elasticsearch.WithPassword(""),
		testcontainers.WithEnv(map[string]string{
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/").
				WithPort("9200").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start elasticsearch container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("failed to terminate elasticsearch container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("failed to get elasticsearch host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9200")
	if err != nil {
		tb.Fatalf("failed to get elasticsearch port: %v", err)
	}

	return &HistoryES{
		Container: container,
		Addresses: []string{fmt.Sprintf("http://%s:%s", host, port.Port())},
	}
}

// IndexName returns a fresh lowercase history index name, so tests never see each other's documents.
func (h *HistoryES) IndexName() string {
	return "grading_history_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

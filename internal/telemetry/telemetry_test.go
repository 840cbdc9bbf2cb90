package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitReportsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"ftp://collector:4318", "http://", "http://bad host:4318"} {
		shutdown, err := Init(context.Background(), Config{Endpoint: endpoint})
		assert.Error(t, err, endpoint)
		require.NotNil(t, shutdown)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestExporterOptions(t *testing.T) {
	opts, err := exporterOptions("collector:4318")
	require.NoError(t, err)
	assert.Len(t, opts, 4, "plain host gets the insecure option")

	opts, err = exporterOptions("https://otel.example.com/custom/traces/")
	require.NoError(t, err)
	assert.Len(t, opts, 4, "https keeps tls and adds the url path")

	opts, err = exporterOptions("https://otel.example.com")
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestInitInstallsProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Endpoint: "http://127.0.0.1:4318", ServiceName: "popcorn-test", SampleRatio: 0.5})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
